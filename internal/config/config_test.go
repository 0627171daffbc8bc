package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := NewJWTConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestNewJWTConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-jwt-signing-minimum-32-bytes")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenLifetimeHours, cfg.ExpirationHours)
}

func TestNewJWTConfig_InvalidExpiration(t *testing.T) {
	tests := []struct {
		name  string
		hours string
	}{
		{name: "not a number", hours: "thirty"},
		{name: "zero", hours: "0"},
		{name: "negative", hours: "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret-key-for-jwt-signing-minimum-32-bytes")
			t.Setenv("JWT_EXPIRATION_HOURS", tt.hours)

			_, err := NewJWTConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewPasswordConfig_CostRange(t *testing.T) {
	tests := []struct {
		name    string
		cost    string
		wantErr bool
	}{
		{name: "default", cost: "", wantErr: false},
		{name: "minimum", cost: "10", wantErr: false},
		{name: "maximum", cost: "14", wantErr: false},
		{name: "too low", cost: "9", wantErr: true},
		{name: "too high", cost: "15", wantErr: true},
		{name: "garbage", cost: "cheap", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BCRYPT_COST", tt.cost)

			cfg, err := NewPasswordConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cfg)
		})
	}
}

func TestPasswordConfig_HashAndVerify(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10}

	hash, err := cfg.HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)

	assert.True(t, cfg.VerifyPassword("pw123456", hash))
	assert.False(t, cfg.VerifyPassword("wrong-password", hash))
}

func TestPasswordConfig_PepperChangesVerification(t *testing.T) {
	peppered := &PasswordConfig{BcryptCost: 10, Pepper: "global-secret"}
	plain := &PasswordConfig{BcryptCost: 10}

	hash, err := peppered.HashPassword("pw123456")
	require.NoError(t, err)

	assert.True(t, peppered.VerifyPassword("pw123456", hash))
	assert.False(t, plain.VerifyPassword("pw123456", hash))
}
