package controller

import (
	"fmt"
	"time"
)

// Config holds the adaptive controller's tunables. The zero value is not
// usable; start from DefaultConfig and override.
type Config struct {
	// MinInterval is the shortest time between ruleset changes. Below it the
	// decision procedure never replaces, whatever the history says.
	MinInterval time.Duration

	// MaxInterval forces a full regeneration once exceeded.
	MaxInterval time.Duration

	// MinFailRatio and MaxFailRatio bound the target band for the fraction
	// of messages with at least one violation. Below the band the game gets
	// harder, above it easier.
	MinFailRatio float64
	MaxFailRatio float64

	// MinSampleSize is the fewest records needed before a ratio-driven
	// decision; MaxSampleSize forces regeneration once the window outgrows it.
	MinSampleSize int
	MaxSampleSize int

	// ChangeProbability gates ratio-driven adjustment on each evaluation of
	// the decision procedure; FullResetProbability gates a surprise full
	// regeneration when no adjustment was drawn.
	ChangeProbability    float64
	FullResetProbability float64

	// InitialDifficulty is the construction target for the first ruleset and
	// the anchor for forced-regeneration targets.
	InitialDifficulty int
}

// DefaultConfig returns tunables suited to a casual chat-channel game.
func DefaultConfig() Config {
	return Config{
		MinInterval:          2 * time.Minute,
		MaxInterval:          30 * time.Minute,
		MinFailRatio:         0.2,
		MaxFailRatio:         0.6,
		MinSampleSize:        8,
		MaxSampleSize:        200,
		ChangeProbability:    0.25,
		FullResetProbability: 0.05,
		InitialDifficulty:    6,
	}
}

// Validate reports the first tunable that is out of range.
func (c Config) Validate() error {
	if c.MinInterval <= 0 {
		return fmt.Errorf("min interval must be positive, got %v", c.MinInterval)
	}
	if c.MaxInterval <= c.MinInterval {
		return fmt.Errorf("max interval %v must exceed min interval %v", c.MaxInterval, c.MinInterval)
	}
	if c.MinFailRatio < 0 || c.MinFailRatio > 1 {
		return fmt.Errorf("min fail ratio must be in [0,1], got %v", c.MinFailRatio)
	}
	if c.MaxFailRatio < 0 || c.MaxFailRatio > 1 {
		return fmt.Errorf("max fail ratio must be in [0,1], got %v", c.MaxFailRatio)
	}
	if c.MinFailRatio >= c.MaxFailRatio {
		return fmt.Errorf("fail ratio band [%v, %v] is empty", c.MinFailRatio, c.MaxFailRatio)
	}
	if c.MinSampleSize < 1 {
		return fmt.Errorf("min sample size must be at least 1, got %d", c.MinSampleSize)
	}
	if c.MaxSampleSize <= c.MinSampleSize {
		return fmt.Errorf("max sample size %d must exceed min sample size %d", c.MaxSampleSize, c.MinSampleSize)
	}
	if c.ChangeProbability < 0 || c.ChangeProbability > 1 {
		return fmt.Errorf("change probability must be in [0,1], got %v", c.ChangeProbability)
	}
	if c.FullResetProbability < 0 || c.FullResetProbability > 1 {
		return fmt.Errorf("full reset probability must be in [0,1], got %v", c.FullResetProbability)
	}
	if c.InitialDifficulty < 1 {
		return fmt.Errorf("initial difficulty must be at least 1, got %d", c.InitialDifficulty)
	}
	return nil
}
