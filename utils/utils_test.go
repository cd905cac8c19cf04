package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCurrency(t *testing.T) {
	cases := map[string]string{
		"0":       "$0.00",
		"25":      "$25.00",
		"14.99":   "$14.99",
		"1234.5":  "$1,234.50",
		"1000000": "$1,000,000.00",
		"-7.25":   "-$7.25",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCurrency(decimal.RequireFromString(in)), in)
	}
}

func TestTokenRoundTripAndRevocation(t *testing.T) {
	ConfigureTokens("unit-test-secret", time.Hour)

	token, err := GenerateToken(42, "chef@example.com")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "chef@example.com", claims.Email)

	BlacklistToken(token, time.Now().Add(time.Hour))
	_, err = ValidateToken(token)
	assert.Error(t, err)

	_, err = ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestPurgeBlacklist(t *testing.T) {
	BlacklistToken("expired", time.Now().Add(-time.Minute))
	BlacklistToken("live", time.Now().Add(time.Hour))

	assert.GreaterOrEqual(t, PurgeBlacklist(time.Now()), 1)
	assert.False(t, IsTokenBlacklisted("expired"))
	assert.True(t, IsTokenBlacklisted("live"))
}

func TestInitLoggerLevels(t *testing.T) {
	InitLogger("debug")
	t.Cleanup(func() { InitLogger("info") })

	assert.True(t, InfoLogger.IsLevelEnabled(logrus.DebugLevel))
	assert.False(t, ErrorLogger.IsLevelEnabled(logrus.DebugLevel))
	assert.True(t, ErrorLogger.IsLevelEnabled(logrus.WarnLevel))

	InitLogger("nonsense")
	assert.Equal(t, logrus.InfoLevel, InfoLogger.GetLevel())
}
