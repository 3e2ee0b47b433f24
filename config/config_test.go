package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// isolate points ENV_FILE at a missing file so a developer .env never leaks in.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "attendance-hub", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "Asia/Jakarta", cfg.App.Timezone)
	assert.NotNil(t, cfg.App.Location)

	assert.Equal(t, timeutil.MustTimeOfDay("06:45"), cfg.Attendance.PresentBefore)
	assert.Equal(t, timeutil.MustTimeOfDay("06:55"), cfg.Attendance.ExcusedUntil)
	assert.Equal(t, 10, cfg.Attendance.MaxImages)
	assert.Equal(t, 2048, cfg.Attendance.MaxImageKB)

	assert.Equal(t, "keep", cfg.Discipline.CancelPolicy)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "55 23 * * *", cfg.Scheduler.CloseDayCron)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Redis.ReportTTL)
}

func TestLoad_Overrides(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.sch.id, https://b.sch.id,")
	t.Setenv("ATTENDANCE_PRESENT_BEFORE", "07:00")
	t.Setenv("ATTENDANCE_EXCUSED_UNTIL", "07:15")
	t.Setenv("DISCIPLINE_CANCEL_POLICY", "restore")
	t.Setenv("SCHEDULER_ENABLED", "true")
	t.Setenv("REDIS_DISABLED", "1")
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.sch.id", "https://b.sch.id"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, timeutil.MustTimeOfDay("07:00"), cfg.Attendance.PresentBefore)
	assert.Equal(t, "restore", cfg.Discipline.CancelPolicy)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.True(t, cfg.Redis.Disabled)
	assert.Equal(t, 5432, cfg.Database.Port, "unparsable values fall back to defaults")
}

func TestLoad_EnvFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("AUTH_JWT_SECRET=from-file\nAPP_NAME=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", file)
	t.Setenv("APP_NAME", "from-env")
	// godotenv sets variables for the process; clean up what it adds.
	t.Setenv("AUTH_JWT_SECRET", "")
	os.Unsetenv("AUTH_JWT_SECRET")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "from-env", cfg.App.Name)
}

func TestLoad_BadTimeOfDay(t *testing.T) {
	isolate(t)
	t.Setenv("ATTENDANCE_PRESENT_BEFORE", "quarter to seven")

	_, err := Load()
	assert.ErrorContains(t, err, "ATTENDANCE_PRESENT_BEFORE")
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	isolate(t)
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("HTTP_PORT", "70000")
	t.Setenv("ATTENDANCE_PRESENT_BEFORE", "07:00")
	t.Setenv("ATTENDANCE_EXCUSED_UNTIL", "06:30")
	t.Setenv("DISCIPLINE_CANCEL_POLICY", "refund")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	require.Error(t, err)
	for _, want := range []string{"AUTH_JWT_SECRET", "HTTP_PORT", "ATTENDANCE_EXCUSED_UNTIL", "DISCIPLINE_CANCEL_POLICY", "LOG_FORMAT"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidate_ProductionSecretLength(t *testing.T) {
	isolate(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/attendance_hub")

	_, err := Load()
	assert.ErrorContains(t, err, "at least 32 bytes")

	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.App.Debug)
}
