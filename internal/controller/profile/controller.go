// Package profile provides HTTP handlers for the seeker profile and its files.
package profile

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/filecodec"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/metrics"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/storage"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

// OwnFilesPath is where a seeker downloads their own files; summaries link below it.
const OwnFilesPath = "/api/v1/seeker/files"

var fileKinds = []string{model.FileKindPhoto, model.FileKindResume}

// ProfileController handles seeker profile related endpoints.
// With a nil Storage files are kept inline as base64.
type ProfileController struct {
	DB      *database.DBinstanceStruct
	Storage storage.StorageClient
	Metrics *metrics.Collector
}

// NewProfileController creates a new instance of ProfileController
func NewProfileController(db *database.DBinstanceStruct, store storage.StorageClient, collector *metrics.Collector) *ProfileController {
	return &ProfileController{
		DB:      db,
		Storage: store,
		Metrics: collector,
	}
}

// GetProfile returns the caller's profile, creating an empty one on first access.
// @Summary Get own seeker profile
// @Tags Profile
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.ProfileResponse
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as seeker"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /seeker/profile [get]
func (pc *ProfileController) GetProfile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	pc.respondPersisted(c, user)
}

// CancelEdit discards an edit in progress by returning the last saved state.
// @Summary Discard profile edit
// @Tags Profile
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.ProfileResponse
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /seeker/profile/cancel [post]
func (pc *ProfileController) CancelEdit(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	pc.respondPersisted(c, user)
}

func (pc *ProfileController) respondPersisted(c *gin.Context, user model.User) {
	profile := model.UserProfile{}
	seed := model.UserProfile{}
	if user.Email != nil {
		seed.Email = *user.Email
	}
	if err := pc.DB.Where(model.UserProfile{UserID: user.ID}).Attrs(seed).FirstOrCreate(&profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to load profile: %s", err.Error()),
		})
		return
	}

	files, err := loadFiles(pc.DB.DB, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to load files: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, model.ToProfileResponse(profile, files, OwnFilesPath))
}

// loadFiles returns the caller's file record, or an empty one when nothing was uploaded yet.
func loadFiles(db *gorm.DB, user model.User) (model.UserFiles, error) {
	files := model.UserFiles{}
	err := db.Where("user_id = ?", user.ID).First(&files).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserFiles{UserID: user.ID}, nil
	}
	return files, err
}

// SaveProfile validates and writes the profile fields and any uploaded photo or resume.
// Nothing is written unless every part is accepted; both rows commit in one transaction.
// @Summary Save own seeker profile
// @Description Photo must be jpeg or png, resume pdf, doc or docx, each at most 5MB
// @Tags Profile
// @Accept mpfd
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param full_name formData string true "Full name"
// @Param photo formData file false "Profile photo"
// @Param resume formData file false "Resume"
// @Success 200 {object} model.ProfileResponse "Saved profile as persisted"
// @Failure 400 {object} utilities.ErrorResponse "Full name missing or invalid form"
// @Failure 413 {object} utilities.ErrorResponse "File too large"
// @Failure 415 {object} utilities.ErrorResponse "File type not allowed"
// @Failure 500 {object} utilities.ErrorResponse "Database or storage error"
// @Router /seeker/profile [post]
func (pc *ProfileController) SaveProfile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	info := model.EditableProfileInfo{}
	if err := c.ShouldBind(&info); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			c.JSON(http.StatusRequestEntityTooLarge, utilities.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	info.FullName = strings.TrimSpace(info.FullName)
	if info.FullName == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: filecodec.ValidationError{Field: "full_name", Message: "Full name is required"}.Error(),
		})
		return
	}

	uploads := map[string]model.StoredFile{}
	for _, kind := range fileKinds {
		stored, ok, err := pc.acceptUpload(c, kind)
		if err != nil {
			pc.discard(c, uploads)
			pc.Metrics.ObserveUpload(kind, "rejected")
			status := uploadErrorStatus(err)
			msg := fmt.Sprintf("Invalid %s: %s", kind, err.Error())
			if status == http.StatusInternalServerError {
				msg = fmt.Sprintf("Failed to store %s: %s", kind, err.Error())
			}
			c.JSON(status, utilities.ErrorResponse{Error: msg})
			return
		}
		if ok {
			uploads[kind] = stored
		}
	}

	now := time.Now()
	profile := model.UserProfile{UserID: user.ID, EditableProfileInfo: info, UpdatedAt: now}
	var replaced []string
	step := "save profile"
	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&profile).Error; err != nil {
			return err
		}
		step = "load files"
		files, err := loadFiles(tx, user)
		if err != nil {
			return err
		}
		for kind, stored := range uploads {
			if old, _ := files.Slot(kind); old.Object != nil {
				replaced = append(replaced, *old.Object)
			}
			files.SetSlot(kind, stored)
		}
		files.UpdatedAt = now
		step = "save files"
		return tx.Save(&files).Error
	})
	if err != nil {
		pc.discard(c, uploads)
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to %s: %s", step, err.Error()),
		})
		return
	}
	for kind := range uploads {
		pc.Metrics.ObserveUpload(kind, "accepted")
	}
	pc.removeObjects(c, replaced)

	// Answer with what the database holds, not with the request
	persisted, err := loadFiles(pc.DB.DB, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to load files: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, model.ToProfileResponse(profile, persisted, OwnFilesPath))
}

func uploadErrorStatus(err error) int {
	var validationErr filecodec.ValidationError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.Is(err, filecodec.ErrTooLarge), errors.Is(err, filecodec.ErrEncodedTooLarge), errors.As(err, &maxBytesError):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, filecodec.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// discard removes blob objects uploaded for a save that was not committed.
func (pc *ProfileController) discard(c *gin.Context, uploads map[string]model.StoredFile) {
	var names []string
	for _, f := range uploads {
		if f.Object != nil {
			names = append(names, *f.Object)
		}
	}
	pc.removeObjects(c, names)
}

func (pc *ProfileController) removeObjects(c *gin.Context, names []string) {
	if pc.Storage == nil {
		return
	}
	for _, name := range names {
		if err := pc.Storage.DeleteFile(c.Request.Context(), name); err != nil {
			log.Warn().Err(err).Str("object", name).Msg("failed to delete storage object")
		}
	}
}
