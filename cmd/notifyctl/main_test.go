package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendify/notify-agent/internal/shared/infrastructure/config"
	"github.com/attendify/notify-agent/internal/shared/utils"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.JWT.Secret = "ctl-secret"
	return cfg
}

func TestRun_Token(t *testing.T) {
	cfg := testConfig(t)
	userID := uuid.New()

	var out bytes.Buffer
	require.NoError(t, run([]string{"token", "--user=" + userID.String(), "--role=admin", "--ttl=1h"}, cfg, &out))

	claims, err := utils.ValidateToken(strings.TrimSpace(out.String()), "ctl-secret")
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestRun_TokenDefaults(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, run([]string{"token", "--user=" + uuid.NewString()}, cfg, &out))

	claims, err := utils.ValidateToken(strings.TrimSpace(out.String()), "ctl-secret")
	require.NoError(t, err)
	assert.Equal(t, "superadmin", claims.Role)
}

func TestRun_TokenInvalidInput(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	assert.Error(t, run([]string{"token", "--user=nope"}, cfg, &out))
	assert.Error(t, run([]string{"token", "--user=" + uuid.NewString(), "--ttl=soon"}, cfg, &out))
	assert.Empty(t, out.String())
}

func TestRun_MigrateForceRejectsBadVersion(t *testing.T) {
	cfg := testConfig(t)

	err := run([]string{"migrate", "force", "latest"}, cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version")
}
