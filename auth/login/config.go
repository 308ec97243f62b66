package login

import (
	"fmt"
	"runtime"
	"time"
)

// Config configures the login service.
type Config struct {
	// MaxConcurrentVerifications bounds concurrent hash computations
	// (default: runtime.NumCPU()).
	MaxConcurrentVerifications int `yaml:"max_concurrent_verifications" mapstructure:"max_concurrent_verifications"`

	// AcquireTimeout is how long an attempt waits for a verification slot
	// (default: 5s).
	AcquireTimeout time.Duration `yaml:"acquire_timeout" mapstructure:"acquire_timeout"`

	// ResetTokenTTL is how long a password reset token stays valid
	// (default: 1h).
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl" mapstructure:"reset_token_ttl"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrentVerifications == 0 {
		c.MaxConcurrentVerifications = runtime.NumCPU()
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = 5 * time.Second
	}
	if c.ResetTokenTTL == 0 {
		c.ResetTokenTTL = time.Hour
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxConcurrentVerifications < 1 {
		return fmt.Errorf("max_concurrent_verifications must be >= 1 (got: %d)", c.MaxConcurrentVerifications)
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire_timeout must be positive (got: %s)", c.AcquireTimeout)
	}
	if c.ResetTokenTTL <= 0 {
		return fmt.Errorf("reset_token_ttl must be positive (got: %s)", c.ResetTokenTTL)
	}
	return nil
}
