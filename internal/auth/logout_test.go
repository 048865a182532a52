package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
)

type mockBlacklistStore struct {
	addError error
}

func (m *mockBlacklistStore) IsBlacklisted(context.Context, string) (bool, error) {
	return false, nil
}

func (m *mockBlacklistStore) AddToBlacklist(context.Context, string, time.Time) error {
	return m.addError
}

// logoutContext builds a request carrying token; claims are set when non-nil, as RequireAuth would.
func logoutContext(t *testing.T, token string, claims interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req, err := http.NewRequest(http.MethodPost, "/auth/logout", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c.Request = req
	if claims != nil {
		c.Set("claims", claims)
	}
	return c, rec
}

func parsedClaims(t *testing.T, token string) *jwt.RegisteredClaims {
	t.Helper()
	parsed, err := testTokens.ValidatedToken(token)
	require.NoError(t, err)
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	require.True(t, ok)
	return claims
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogoutSuccess(t *testing.T) {
	accessToken, err := GetAccessToken(t, testDB, testTokens, database.TestUserSeeker1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	store := NewInMemoryBlacklistStore()
	defer store.Close()
	lc := NewLogoutController(store, nil)

	c, rec := logoutContext(t, accessToken, parsedClaims(t, accessToken))
	lc.LogoutHandler(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully logged out", decodeBody(t, rec)["message"])

	blacklisted, err := store.IsBlacklisted(context.Background(), accessToken)
	assert.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestLogoutMissingToken(t *testing.T) {
	store := NewInMemoryBlacklistStore()
	defer store.Close()
	lc := NewLogoutController(store, nil)

	c, rec := logoutContext(t, "", nil)
	lc.LogoutHandler(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "authorization header")
}

func TestLogoutInvalidTokenFormat(t *testing.T) {
	store := NewInMemoryBlacklistStore()
	defer store.Close()
	lc := NewLogoutController(store, nil)

	c, rec := logoutContext(t, "", nil)
	c.Request.Header.Set("Authorization", "InvalidFormat token123")
	lc.LogoutHandler(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "error")
}

func TestLogoutMissingClaims(t *testing.T) {
	accessToken, err := GetAccessToken(t, testDB, testTokens, database.TestUserSeeker1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	lc := NewLogoutController(&mockBlacklistStore{}, nil)
	c, rec := logoutContext(t, accessToken, nil)
	lc.LogoutHandler(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token claims", decodeBody(t, rec)["error"])
}

func TestLogoutInvalidClaimsType(t *testing.T) {
	accessToken, err := GetAccessToken(t, testDB, testTokens, database.TestUserSeeker1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	lc := NewLogoutController(&mockBlacklistStore{}, nil)
	c, rec := logoutContext(t, accessToken, "invalid_claims_type")
	lc.LogoutHandler(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token claims type", decodeBody(t, rec)["error"])
}

func TestLogoutBlacklistStoreError(t *testing.T) {
	accessToken, err := GetAccessToken(t, testDB, testTokens, database.TestUserEmployer1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	lc := NewLogoutController(&mockBlacklistStore{addError: fmt.Errorf("database connection failed")}, nil)
	c, rec := logoutContext(t, accessToken, parsedClaims(t, accessToken))
	lc.LogoutHandler(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to logout", decodeBody(t, rec)["error"])
}

func TestLogoutMultipleTokens(t *testing.T) {
	token1, err := GetAccessToken(t, testDB, testTokens, database.TestUserSeeker1.Username, database.TestSeedPassword)
	require.NoError(t, err)
	token2, err := GetAccessToken(t, testDB, testTokens, database.TestUserEmployer1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	store := NewInMemoryBlacklistStore()
	defer store.Close()
	lc := NewLogoutController(store, nil)

	for _, tok := range []string{token1, token2} {
		c, rec := logoutContext(t, tok, parsedClaims(t, tok))
		lc.LogoutHandler(c)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	for _, tok := range []string{token1, token2} {
		blacklisted, err := store.IsBlacklisted(context.Background(), tok)
		assert.NoError(t, err)
		assert.True(t, blacklisted)
	}
}

func TestLogoutExpiredEntryRemovedByCleanup(t *testing.T) {
	tokenString, _, err := testTokens.GenerateTokenWithDuration(database.TestUserSeeker1.ID, time.Second)
	require.NoError(t, err)

	store := NewInMemoryBlacklistStore()
	defer store.Close()
	lc := NewLogoutController(store, nil)

	c, rec := logoutContext(t, tokenString, parsedClaims(t, tokenString))
	lc.LogoutHandler(c)
	require.Equal(t, http.StatusOK, rec.Code)

	time.Sleep(1500 * time.Millisecond)

	// Still present until cleanup runs
	blacklisted, _ := store.IsBlacklisted(context.Background(), tokenString)
	assert.True(t, blacklisted)

	store.CleanUpExpired()
	blacklisted, _ = store.IsBlacklisted(context.Background(), tokenString)
	assert.False(t, blacklisted)
}
