package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "1s")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file::memory:")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 200*time.Millisecond, c.SimTickInterval)
	require.Equal(t, []string{"5", "7", "8"}, c.EditorRoles)
	require.Equal(t, time.Second, c.ShutdownTimeout)
	require.Same(t, c, Get())
}

func TestEditorRolesBinding(t *testing.T) {
	setRequired(t)
	t.Setenv("EDITOR_ROLES", " 8 , 9,,")
	t.Setenv("SIM_TICK_INTERVAL", "100ms")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"8", "9"}, c.EditorRoles)
	require.Equal(t, 100*time.Millisecond, c.SimTickInterval)
}

func TestRejectsUnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
}

func TestRejectsBadTickInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("SIM_TICK_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
}
