package database

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	m "github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

var testDBInstance *DBinstanceStruct
var teardown func(context.Context, ...testcontainers.TerminateOption) error

// Exported test users & fixtures
var (
	TestAdminUser     m.User
	TestUserSeeker1   m.User
	TestUserSeeker2   m.User
	TestUserEmployer1 m.User
	TestUserEmployer2 m.User
	TestProfile1      m.UserProfile

	// Plain password shared by every seeded account
	TestSeedPassword = "SeedPass123!"

	// Jobs owned by TestUserEmployer1 (1, 2) and TestUserEmployer2 (3)
	TestJob1 m.Job
	TestJob2 m.Job
	TestJob3 m.Job
)

// GetTestDB starts a PostgreSQL test container and returns a teardown function,
// the DB instance, and any error encountered during setup.
func GetTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, *DBinstanceStruct, error) {

	if testDBInstance != nil && teardown != nil {
		return teardown, testDBInstance, nil
	}

	var (
		dbName = "database"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:latest",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), nat.Port("5432/tcp"))
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	config := &DBConfig{
		DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbPort.Port(), dbUser, dbPwd, dbName),
	}

	db, err := NewDBInstance(config)
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	if err := seedTestData(db); err != nil {
		_ = dbContainer.Terminate(context.Background())
		return nil, nil, err
	}

	testDBInstance = db
	teardown = dbContainer.Terminate

	return dbContainer.Terminate, db, nil
}

// seedTestData inserts two seekers, two employers, an admin and three jobs.
func seedTestData(db *DBinstanceStruct) error {
	hashedPwd, err := utilities.HashPassword(TestSeedPassword)
	if err != nil {
		return err
	}

	userSpecs := []struct {
		username string
		email    string
		role     string
		dst      *m.User
	}{
		{"seeker_1", "seeker1@example.com", m.RoleSeeker, &TestUserSeeker1},
		{"seeker_2", "seeker2@example.com", m.RoleSeeker, &TestUserSeeker2},
		{"employer_1", "employer1@example.com", m.RoleEmployer, &TestUserEmployer1},
		{"employer_2", "employer2@example.com", m.RoleEmployer, &TestUserEmployer2},
		{"admin_user", "admin@example.com", m.RoleAdmin, &TestAdminUser},
	}

	for _, s := range userSpecs {
		u := m.User{
			ID:       uuid.New(),
			Username: s.username,
			Email:    ptr(s.email),
			Role:     s.role,
			Password: hashedPwd,
		}
		if err := db.Create(&u).Error; err != nil {
			return err
		}
		*s.dst = u
	}

	TestProfile1 = m.UserProfile{
		UserID: TestUserSeeker1.ID,
		EditableProfileInfo: m.EditableProfileInfo{
			FullName:      "Juan Dela Cruz",
			Email:         "seeker1@example.com",
			ContactNumber: "09170000001",
			Barangay:      "San Jose",
			DesiredJob:    "Warehouse Staff",
			Skills:        "forklift, inventory",
		},
		UpdatedAt: time.Now(),
	}
	if err := db.Create(&TestProfile1).Error; err != nil {
		return err
	}

	jobs := []m.Job{
		{
			EmployerID: TestUserEmployer1.ID,
			EditableJobInfo: m.EditableJobInfo{
				JobTitle:       "Warehouse Staff",
				JobDescription: "Receive and shelve deliveries.",
				Barangay:       "San Isidro",
				CompanyName:    "Rizal Logistics",
				JobStatus:      m.JobStatusOpen,
				JobType:        m.JobTypeFullTime,
			},
		},
		{
			EmployerID: TestUserEmployer1.ID,
			EditableJobInfo: m.EditableJobInfo{
				JobTitle:       "Delivery Rider",
				JobDescription: "Deliver parcels around Montalban.",
				Barangay:       "Burgos",
				CompanyName:    "Rizal Logistics",
				ApplicantLimit: 10,
				JobStatus:      m.JobStatusOpen,
				JobType:        m.JobTypePartTime,
			},
		},
		{
			EmployerID: TestUserEmployer2.ID,
			EditableJobInfo: m.EditableJobInfo{
				JobTitle:    "Store Cashier",
				CompanyName: "Balite Mart",
				JobStatus:   m.JobStatusOpen,
				JobType:     m.JobTypeFullTime,
			},
		},
	}
	if err := db.Create(&jobs).Error; err != nil {
		return err
	}
	TestJob1, TestJob2, TestJob3 = jobs[0], jobs[1], jobs[2]

	return nil
}

// CreateTestUser inserts a fresh account with TestSeedPassword, so a test can own isolated data.
func CreateTestUser(db *DBinstanceStruct, role string) (m.User, error) {
	hashedPwd, err := utilities.HashPassword(TestSeedPassword)
	if err != nil {
		return m.User{}, err
	}
	u := m.User{
		ID:       uuid.New(),
		Username: fmt.Sprintf("%s_%s", role, uuid.NewString()[:8]),
		Role:     role,
		Password: hashedPwd,
	}
	if err := db.Create(&u).Error; err != nil {
		return m.User{}, err
	}
	return u, nil
}

// CreateTestJob inserts an open job owned by employerID.
func CreateTestJob(db *DBinstanceStruct, employerID uuid.UUID, title string) (m.Job, error) {
	j := m.Job{
		EmployerID: employerID,
		EditableJobInfo: m.EditableJobInfo{
			JobTitle:  title,
			JobStatus: m.JobStatusOpen,
			JobType:   m.JobTypeFullTime,
		},
	}
	if err := db.Create(&j).Error; err != nil {
		return m.Job{}, err
	}
	return j, nil
}

// CreateTestApplication inserts an application of seekerID to job with the given status.
func CreateTestApplication(db *DBinstanceStruct, seekerID uuid.UUID, job m.Job, status string) (m.Application, error) {
	now := time.Now()
	a := m.Application{
		SeekerID:    seekerID,
		JobID:       job.ID,
		FullName:    "Applicant " + uuid.NewString()[:4],
		Email:       "applicant@example.com",
		JobTitle:    job.JobTitle,
		CompanyName: job.CompanyName,
		Status:      status,
		AppliedAt:   &now,
		UpdatedAt:   &now,
	}
	if err := db.Create(&a).Error; err != nil {
		return m.Application{}, err
	}
	return a, nil
}

// ptr helper
func ptr[T any](v T) *T { return &v }
