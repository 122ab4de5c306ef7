package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Licensing.PlatformFeePercent.Equal(decimal.NewFromInt(15)))
	assert.True(t, cfg.Licensing.DefaultWriterSharePercent.Equal(decimal.NewFromInt(85)))
	assert.Equal(t, 30, cfg.Licensing.NegotiationTTLDays)
	assert.Equal(t, 7, cfg.Licensing.SignatureWindowDays)
	assert.Equal(t, "licensing", cfg.NATS.SubjectPrefix)
}

func TestLoadParsesDecimalPercentages(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "12.5")
	t.Setenv("DEFAULT_WRITER_SHARE_PERCENT", "80")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "12.5", cfg.Licensing.PlatformFeePercent.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsOutOfRangePercent(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "150")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsPercentFinerThanColumn(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "12.345")

	_, err := Load()
	assert.ErrorContains(t, err, "PLATFORM_FEE_PERCENT")
}

func TestLoadRejectsNonPositiveRelayInterval(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		t.Setenv("OUTBOX_RELAY_INTERVAL", v)

		_, err := Load()
		assert.ErrorContains(t, err, "OUTBOX_RELAY_INTERVAL", v)
	}
}

func TestProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "s3cret")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Database: "lic", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=lic sslmode=disable TimeZone=UTC", d.DSN())

	d.URL = "postgres://u:p@db:5432/lic"
	assert.Equal(t, "postgres://u:p@db:5432/lic", d.DSN())
}
