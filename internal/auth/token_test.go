package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divecrm/divecrm/internal/config"
)

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		Secret:         "test-secret-please-rotate",
		Issuer:         "divecrm",
		AccessTokenTTL: time.Hour,
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(config.TokenConfig{Issuer: "divecrm"})
	assert.Error(t, err)
}

func TestIssueAndValidate(t *testing.T) {
	svc, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)

	token, expiresAt, err := svc.Issue("u1", "ana", true)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "ana", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)

	token, _, err := svc.Issue("u1", "ana", false)
	require.NoError(t, err)

	_, err = svc.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	svc1, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)

	otherCfg := testTokenConfig()
	otherCfg.Secret = "a-different-secret"
	svc2, err := NewTokenService(otherCfg)
	require.NoError(t, err)

	token, _, err := svc1.Issue("u1", "ana", false)
	require.NoError(t, err)

	_, err = svc2.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	cfg := testTokenConfig()
	cfg.Issuer = "someone-else"
	issuing, err := NewTokenService(cfg)
	require.NoError(t, err)

	validating, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)

	token, _, err := issuing.Issue("u1", "ana", false)
	require.NoError(t, err)

	_, err = validating.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
