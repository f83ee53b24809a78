package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fees "library-fees/internal/fees/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("FEES_CONFIG", "")
	t.Setenv("FEES_DATE_FORMAT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 50, cfg.ListLimit)

	format, err := cfg.Format()
	require.NoError(t, err)
	assert.Equal(t, fees.DateFormatFourDigitYear, format)
}

func TestLoadConfig_YAMLOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fees.yaml")
	content := "date_format: MM/DD/YY\ncurrency: EUR\nmax_upload_bytes: 2048\ncache_ttl: 90m\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("FEES_DATE_FORMAT", "MM/DD/YYYY")
	t.Setenv("FEES_LIST_LIMIT", "5")
	t.Setenv("FEES_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.ListLimit)

	format, err := cfg.Format()
	require.NoError(t, err)
	assert.Equal(t, fees.DateFormatTwoDigitYear, format)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("FEES_CONFIG", "")

	t.Setenv("FEES_DATE_FORMAT", "YYYY-MM-DD")
	_, err := LoadConfig()
	assert.ErrorIs(t, err, fees.ErrUnsupportedDateFormat)

	t.Setenv("FEES_DATE_FORMAT", "")
	t.Setenv("FEES_MAX_UPLOAD_BYTES", "-1")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("FEES_MAX_UPLOAD_BYTES", "")
	t.Setenv("FEES_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadConfig()
	assert.Error(t, err)
}
