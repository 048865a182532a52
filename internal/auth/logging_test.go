package auth

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogTo(zerolog.New(&buf))

	audit.Attempt(zerolog.WarnLevel, "Local", AuditFail, "juan", "wrong password")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "Local", line["auth_type"])
	assert.Equal(t, AuditFail, line["status"])
	assert.Equal(t, "juan", line["identifier"])
	assert.Equal(t, "wrong password", line["message"])
}

func TestAuditLog_NilIsNoop(t *testing.T) {
	var audit *AuditLog
	assert.NotPanics(t, func() {
		audit.Attempt(zerolog.InfoLevel, "Local", AuditSuccess, "x", "")
		_ = audit.Close()
	})
}

func TestNewAuditLog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "auth.log")
	audit, err := NewAuditLog(true, path)
	require.NoError(t, err)

	audit.Attempt(zerolog.InfoLevel, "Google", AuditSuccess, "a@example.com", "")
	require.NoError(t, audit.Close())

	data, err := os.ReadFile(path) // #nosec G304 -- temp dir
	require.NoError(t, err)
	assert.Contains(t, string(data), `"auth_type":"Google"`)
}

func TestNewAuditLog_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	audit, err := NewAuditLog(false, path)
	require.NoError(t, err)
	audit.Attempt(zerolog.InfoLevel, "Local", AuditSuccess, "x", "")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
