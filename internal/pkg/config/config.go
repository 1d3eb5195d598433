package config

import (
	"errors"
	"strings"

	"github.com/gomesmer/mesmer/internal/pkg/env"
)

const minEncryptionSecretLen = 32

// Config carries the process-wide secrets the batch jobs depend on. It is
// loaded once at startup and injected into services; business logic never
// reads the environment directly.
type Config struct {
	// EncryptionSecret protects stored Stripe restricted keys at rest.
	EncryptionSecret string
	// StripeSecretKey is Mesmer's own platform key used for admission charges
	// and onboarding customer setup.
	StripeSecretKey string
	// TriggerSecret authorizes the internal job trigger endpoints.
	TriggerSecret string
}

// Configuration errors abort a whole job run before any startup is touched.
var (
	ErrEncryptionSecretTooShort = errors.New("STRIPE_ENCRYPTION_SECRET must be at least 32 bytes")
	ErrStripeSecretKeyInvalid   = errors.New("STRIPE_SECRET_KEY must be a secret key (sk_...)")
	ErrTriggerSecretMissing     = errors.New("CHARGE_ADMISSION_SECRET is not configured")
)

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		EncryptionSecret: strings.TrimSpace(env.GetEnv("STRIPE_ENCRYPTION_SECRET", "")),
		StripeSecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		TriggerSecret:    strings.TrimSpace(env.GetEnv("CHARGE_ADMISSION_SECRET", "")),
	}
}

// Validate checks every secret the core needs. Called once at startup so a
// misconfigured deployment fails before the first request.
func (c Config) Validate() error {
	if err := c.ValidateEncryptionSecret(); err != nil {
		return err
	}
	if err := c.ValidateStripeSecretKey(); err != nil {
		return err
	}
	if c.TriggerSecret == "" {
		return ErrTriggerSecretMissing
	}
	return nil
}

// ValidateEncryptionSecret rejects secrets too short to derive a strong key.
func (c Config) ValidateEncryptionSecret() error {
	if len(c.EncryptionSecret) < minEncryptionSecretLen {
		return ErrEncryptionSecretTooShort
	}
	return nil
}

// ValidateStripeSecretKey checks the platform key shape.
func (c Config) ValidateStripeSecretKey() error {
	if !strings.HasPrefix(c.StripeSecretKey, "sk_") {
		return ErrStripeSecretKeyInvalid
	}
	return nil
}
