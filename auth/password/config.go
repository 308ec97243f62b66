package password

import "fmt"

// Config configures password hashing behavior.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// BcryptCost is the bcrypt cost parameter (default: 12, range: 4-31).
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// MinLength is the minimum length accepted when a password is set
	// (default: 8). Verification never applies it.
	MinLength int `mapstructure:"min_length"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BcryptCost == 0 {
		c.BcryptCost = DefaultCost
	}
	if c.MinLength == 0 {
		c.MinLength = 8
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("%w: bcrypt_cost must be between 4 and 31 (got: %d)", ErrInvalidCost, c.BcryptCost)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("min_length must be >= 1 (got: %d)", c.MinLength)
	}
	if c.MinLength > maxBcryptInput {
		return fmt.Errorf("min_length must be <= %d (got: %d)", maxBcryptInput, c.MinLength)
	}
	return nil
}

// CheckLength enforces MinLength on a password that is about to be set.
func (c *Config) CheckLength(plaintext string) error {
	if len(plaintext) < c.MinLength {
		return fmt.Errorf("%w: minimum length is %d characters", ErrPasswordTooShort, c.MinLength)
	}
	if len(plaintext) > maxBcryptInput {
		return ErrPasswordTooLong
	}
	return nil
}

// NewHasher creates a Hasher from configuration.
// This is the config-driven factory; use it when loading from YAML/env.
func NewHasher(cfg Config) *BcryptHasher {
	cfg.ApplyDefaults()
	return NewBcryptHasher(WithCost(cfg.BcryptCost))
}
