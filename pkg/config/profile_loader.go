package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
)

// GameProfile is a named preset of engine tunables, usually one per channel
// or per event (casual lunch game, weekly tournament). Absent fields fall
// back to the engine defaults.
type GameProfile struct {
	Name             string   `yaml:"name" json:"name"`
	Code             string   `yaml:"code" json:"code"`
	Channel          string   `yaml:"channel,omitempty" json:"channel,omitempty"`
	TargetDifficulty int      `yaml:"target_difficulty,omitempty" json:"target_difficulty,omitempty"`
	Tunables         Tunables `yaml:"tunables,omitempty" json:"tunables,omitempty"`
}

// Tunables overrides engine cadence and thresholds. Durations are strings
// ("2m", "30m"); ratios and probabilities are pointers so zero can be set
// explicitly.
type Tunables struct {
	MinInterval          string   `yaml:"min_interval,omitempty" json:"min_interval,omitempty"`
	MaxInterval          string   `yaml:"max_interval,omitempty" json:"max_interval,omitempty"`
	MinFailRatio         *float64 `yaml:"min_fail_ratio,omitempty" json:"min_fail_ratio,omitempty"`
	MaxFailRatio         *float64 `yaml:"max_fail_ratio,omitempty" json:"max_fail_ratio,omitempty"`
	MinSampleSize        *int     `yaml:"min_sample_size,omitempty" json:"min_sample_size,omitempty"`
	MaxSampleSize        *int     `yaml:"max_sample_size,omitempty" json:"max_sample_size,omitempty"`
	ChangeProbability    *float64 `yaml:"change_probability,omitempty" json:"change_probability,omitempty"`
	FullResetProbability *float64 `yaml:"full_reset_probability,omitempty" json:"full_reset_probability,omitempty"`
}

// ControllerConfig resolves the profile into a validated engine
// configuration, starting from the defaults.
func (p *GameProfile) ControllerConfig() (controller.Config, error) {
	cfg := controller.DefaultConfig()
	t := p.Tunables

	var err error
	if cfg.MinInterval, err = overrideDur(cfg.MinInterval, t.MinInterval); err != nil {
		return cfg, fmt.Errorf("profile %q: min_interval: %w", p.Code, err)
	}
	if cfg.MaxInterval, err = overrideDur(cfg.MaxInterval, t.MaxInterval); err != nil {
		return cfg, fmt.Errorf("profile %q: max_interval: %w", p.Code, err)
	}
	if t.MinFailRatio != nil {
		cfg.MinFailRatio = *t.MinFailRatio
	}
	if t.MaxFailRatio != nil {
		cfg.MaxFailRatio = *t.MaxFailRatio
	}
	if t.MinSampleSize != nil {
		cfg.MinSampleSize = *t.MinSampleSize
	}
	if t.MaxSampleSize != nil {
		cfg.MaxSampleSize = *t.MaxSampleSize
	}
	if t.ChangeProbability != nil {
		cfg.ChangeProbability = *t.ChangeProbability
	}
	if t.FullResetProbability != nil {
		cfg.FullResetProbability = *t.FullResetProbability
	}
	if p.TargetDifficulty > 0 {
		cfg.InitialDifficulty = p.TargetDifficulty
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("profile %q: %w", p.Code, err)
	}
	return cfg, nil
}

func overrideDur(current time.Duration, raw string) (time.Duration, error) {
	if raw == "" {
		return current, nil
	}
	return time.ParseDuration(raw)
}

// LoadProfile loads a game profile by code from profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*GameProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile GameProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}
	return &profile, nil
}

// LoadAllProfiles loads every profile_*.yaml in the directory, keyed by code.
func LoadAllProfiles(profilesDir string) (map[string]*GameProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*GameProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile GameProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			// profile_casual.yaml -> casual
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}
		profiles[profile.Code] = &profile
	}
	return profiles, nil
}
