package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/auth"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/metrics"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

var testDB *database.DBinstanceStruct
var testTokens = auth.NewTokenIssuer("middleware-secret", time.Hour)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	var err error
	var midTeardown func(context.Context, ...testcontainers.TerminateOption) error
	midTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start test db: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if midTeardown != nil {
		_ = midTeardown(ctx)
	}
	os.Exit(code)
}

func protectedEngine() *gin.Engine {
	r := gin.New()
	r.GET("/protected", RequireAuth(testDB, testTokens), checkUserHandler)
	return r
}

func checkUserHandler(c *gin.Context) {
	u, exist := c.Get(utilities.ContextUserKey)
	_, hasClaims := c.Get(utilities.ContextClaimsKey)
	if !exist || !hasClaims {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}

func roleHandler(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Hello, " + user.Role})
}

func readFileHandler(c *gin.Context) {
	rawFile, err := c.FormFile("file")
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Entity too large"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to retrieve file: %s", err.Error())})
		return
	}
	f, err := rawFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot open file"})
		return
	}
	defer f.Close()
	if _, err := io.ReadAll(f); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot read file"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func doGet(engine *gin.Engine, path, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func uploadBytes(engine *gin.Engine, endpoint string, size int) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "blob.bin")
	_, _ = part.Write(bytes.Repeat([]byte{'a'}, size))
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, endpoint, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, user model.User) string {
	t.Helper()
	token, err := auth.GetAccessToken(t, testDB, testTokens, user.Username, database.TestSeedPassword)
	require.NoError(t, err)
	return token
}

func TestRequireAuth_Success(t *testing.T) {
	rec, body := doGet(protectedEngine(), "/protected", loginToken(t, database.TestUserSeeker1))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["ok"])
}

func TestRequireAuth_QueryToken(t *testing.T) {
	token := loginToken(t, database.TestUserSeeker1)
	rec, body := doGet(protectedEngine(), "/protected?access_token="+token, "")

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["ok"])
}

func TestRequireAuth_NoHeader(t *testing.T) {
	rec, body := doGet(protectedEngine(), "/protected", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "Invalid authorization header")
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	token, _, err := testTokens.GenerateTokenWithDuration(database.TestUserSeeker1.ID, -1*time.Minute)
	require.NoError(t, err)

	rec, body := doGet(protectedEngine(), "/protected", token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token expired", body["error"])
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	validToken, _, err := testTokens.GenerateTokenWithDuration(database.TestUserSeeker1.ID, time.Hour)
	require.NoError(t, err)

	rec, body := doGet(protectedEngine(), "/protected", validToken+"x")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, body["error"], "Failed to validate token")
}

func TestRequireAuth_OtherSecret(t *testing.T) {
	other := auth.NewTokenIssuer("someone-else", time.Hour)
	token, _, err := other.GenerateStandardToken(database.TestUserSeeker1.ID)
	require.NoError(t, err)

	rec, _ := doGet(protectedEngine(), "/protected", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_UnknownUser(t *testing.T) {
	token, _, err := testTokens.GenerateTokenWithDuration(uuid.New(), time.Hour)
	require.NoError(t, err)

	rec, body := doGet(protectedEngine(), "/protected", token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, body["error"], "User not exist")
}

func TestRequireAuth_InvalidIssuer(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    "invalid-issuer",
		Subject:   database.TestUserSeeker1.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("middleware-secret"))
	require.NoError(t, err)

	rec, body := doGet(protectedEngine(), "/protected", token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	assert.Contains(t, body["error"], "Invalid token issuer")
}

func TestCheckRole_NoRequireAuthBefore(t *testing.T) {
	engine := gin.New()
	engine.GET("/need-role", CheckRole(model.RoleSeeker), roleHandler)

	rec, body := doGet(engine, "/need-role", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, body["error"], "User information not provided")
}

func TestCheckRole_WrongRole(t *testing.T) {
	engine := gin.New()
	engine.GET("/need-role", RequireAuth(testDB, testTokens), CheckRole(model.RoleEmployer), roleHandler)

	rec, body := doGet(engine, "/need-role", loginToken(t, database.TestUserSeeker1))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User doesn't have permission to access", body["error"])
}

func TestCheckRole_MultipleRoles(t *testing.T) {
	engine := gin.New()
	engine.GET("/need-role", RequireAuth(testDB, testTokens), CheckRole(model.RoleSeeker, model.RoleAdmin), roleHandler)

	cases := []struct {
		user model.User
		code int
		msg  string
	}{
		{database.TestUserSeeker1, http.StatusOK, "Hello, seeker"},
		{database.TestAdminUser, http.StatusOK, "Hello, admin"},
		{database.TestUserEmployer1, http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.user.Username, func(t *testing.T) {
			rec, body := doGet(engine, "/need-role", loginToken(t, tc.user))
			assert.Equal(t, tc.code, rec.Code)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, body["message"])
			}
		})
	}
}

func TestJwtBlacklistCheck(t *testing.T) {
	store := auth.NewInMemoryBlacklistStore()
	defer store.Close()

	engine := gin.New()
	engine.GET("/protected", JwtBlacklistCheck(store), RequireAuth(testDB, testTokens), checkUserHandler)

	token := loginToken(t, database.TestUserEmployer1)
	rec, _ := doGet(engine, "/protected", token)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, store.AddToBlacklist(context.Background(), token, time.Now().Add(time.Hour)))

	rec, body := doGet(engine, "/protected", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", body["error"])
}

type failingStore struct{}

func (failingStore) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}

func (failingStore) AddToBlacklist(context.Context, string, time.Time) error { return nil }

func TestJwtBlacklistCheck_StoreError(t *testing.T) {
	engine := gin.New()
	engine.GET("/protected", JwtBlacklistCheck(failingStore{}), checkUserHandler)

	rec, body := doGet(engine, "/protected", "whatever")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "backend down")
}

func TestSizeLimit(t *testing.T) {
	const limit = 1 << 20
	engine := gin.New()
	engine.POST("/upload", SizeLimit(limit), readFileHandler)

	t.Run("under limit", func(t *testing.T) {
		rec := uploadBytes(engine, "/upload", limit/2)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
	t.Run("at limit", func(t *testing.T) {
		rec := uploadBytes(engine, "/upload", limit)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
	t.Run("over limit", func(t *testing.T) {
		rec := uploadBytes(engine, "/upload", limit+int(MultipartOverhead)+1)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestSafeHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(SafeHeader(false))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	engine.GET("/stream", func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache")
		c.Status(http.StatusOK)
	})

	rec, _ := doGet(engine, "/", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec, _ = doGet(engine, "/stream", "")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

func TestSafeHeader_HSTS(t *testing.T) {
	engine := gin.New()
	engine.Use(SafeHeader(true))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec, _ := doGet(engine, "/", "")
	assert.Equal(t, "max-age=63072000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestRateLimiter(t *testing.T) {
	engine := gin.New()
	engine.Use(RateLimiterMiddleware(2))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec, _ := doGet(engine, "/", "")
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_KeyedByUser(t *testing.T) {
	engine := gin.New()
	seeker := model.User{ID: uuid.New(), Role: model.RoleSeeker}
	other := model.User{ID: uuid.New(), Role: model.RoleSeeker}
	engine.Use(func(c *gin.Context) {
		if c.Query("u") == "1" {
			c.Set(utilities.ContextUserKey, seeker)
		} else {
			c.Set(utilities.ContextUserKey, other)
		}
	}, RateLimiterMiddleware(1))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec, _ := doGet(engine, "/?u=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = doGet(engine, "/?u=1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	rec, _ = doGet(engine, "/?u=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	engine := gin.New()
	engine.Use(RequestLogger(zerolog.New(&buf)))
	engine.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	doGet(engine, "/missing", "")

	line := buf.String()
	assert.True(t, strings.Contains(line, `"level":"warn"`), line)
	assert.Contains(t, line, `"status":404`)
	assert.Contains(t, line, `"path":"/missing"`)
}

func TestMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	engine := gin.New()
	engine.Use(Metrics(collector))
	engine.GET("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	doGet(engine, "/jobs/1", "")
	doGet(engine, "/jobs/2", "")

	families, err := collector.Registry().Gather()
	require.NoError(t, err)

	var count float64
	for _, mf := range families {
		if mf.GetName() != "jobboard_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["path"] == "/jobs/:id" && labels["status_code"] == "200" {
				count += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, count)
}
