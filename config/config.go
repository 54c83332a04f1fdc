// Package config holds the run policy knobs for orchestration: the stall and
// reset thresholds, the global round budget and the per-round response
// timeout. Policies can be built in code from DefaultPolicy or loaded from a
// YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy bounds a single orchestration run. The zero value is not valid; use
// DefaultPolicy as the starting point.
type Policy struct {
	// MaxStalls is the number of consecutive non-progressing rounds that
	// triggers an outer-loop reset.
	MaxStalls int `yaml:"max_stalls"`
	// MaxResets caps outer-loop resets; once reached the run degrades to a
	// forced final answer instead of resetting again.
	MaxResets int `yaml:"max_resets"`
	// MaxRounds is the global round budget guaranteeing termination; once
	// reached the run degrades to a forced final answer.
	MaxRounds int `yaml:"max_rounds"`
	// RoundTimeout bounds the wait for a participant's response each round.
	// Zero disables the timeout.
	RoundTimeout time.Duration `yaml:"-"`
}

// DefaultPolicy returns the baseline policy: 3 stalls per reset, 3 resets,
// a 20 round budget and a 5 minute response timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxStalls:    3,
		MaxResets:    3,
		MaxRounds:    20,
		RoundTimeout: 5 * time.Minute,
	}
}

// Validate reports the first policy violation, if any.
func (p Policy) Validate() error {
	if p.MaxStalls < 1 {
		return fmt.Errorf("max_stalls must be at least 1, got %d", p.MaxStalls)
	}
	if p.MaxResets < 0 {
		return fmt.Errorf("max_resets must not be negative, got %d", p.MaxResets)
	}
	if p.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be at least 1, got %d", p.MaxRounds)
	}
	if p.RoundTimeout < 0 {
		return fmt.Errorf("round_timeout must not be negative, got %s", p.RoundTimeout)
	}
	return nil
}

// policyFile is the on-disk representation; round_timeout is a duration
// string such as "90s" or "5m".
type policyFile struct {
	MaxStalls    *int   `yaml:"max_stalls"`
	MaxResets    *int   `yaml:"max_resets"`
	MaxRounds    *int   `yaml:"max_rounds"`
	RoundTimeout string `yaml:"round_timeout"`
}

// Load reads a policy from a YAML file. Absent keys keep their DefaultPolicy
// values; unknown keys are rejected. The result is validated before return.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML policy bytes; see Load.
func Parse(data []byte) (Policy, error) {
	var file policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}

	p := DefaultPolicy()
	if file.MaxStalls != nil {
		p.MaxStalls = *file.MaxStalls
	}
	if file.MaxResets != nil {
		p.MaxResets = *file.MaxResets
	}
	if file.MaxRounds != nil {
		p.MaxRounds = *file.MaxRounds
	}
	if file.RoundTimeout != "" {
		d, err := time.ParseDuration(file.RoundTimeout)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid round_timeout: %w", err)
		}
		p.RoundTimeout = d
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}

	return p, nil
}
