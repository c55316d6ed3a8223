// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

const (
	// DefaultMaxRuns is the number of runs when none is configured.
	DefaultMaxRuns = 10
	// DefaultPoolSize runs one command at a time.
	DefaultPoolSize = 1
	// DefaultCounterToken is replaced by the run index in the command.
	DefaultCounterToken = "#count#"
)

var (
	// ErrInvalidConfig is returned when a configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEmptyCommand is returned when no command is configured.
	ErrEmptyCommand = errors.New("command must not be empty")
	// ErrMaxRuns is returned when max_runs is not positive.
	ErrMaxRuns = errors.New("max_runs must be greater than zero")
	// ErrPoolSize is returned when pool_size is not positive.
	ErrPoolSize = errors.New("pool_size must be greater than zero")
	// ErrCounterToken is returned when the counter token is empty.
	ErrCounterToken = errors.New("counter_token must not be empty")
	// ErrRunTimeout is returned when run_timeout is negative or cannot be parsed.
	ErrRunTimeout = errors.New("run_timeout must be a non-negative duration")
	// ErrEnvKey is returned when an environment variable name is empty or contains '='.
	ErrEnvKey = errors.New("invalid environment variable name")
)

// Config is the configuration of a deflake session.
type Config struct {
	Command           string            // Command template, may contain CounterToken
	MaxRuns           int               // Total number of runs
	PoolSize          int               // Number of runs executed concurrently
	CounterToken      string            // Substring replaced by the run index
	Quiet             bool              // Suppress the per-run PASS/FAIL lines
	ContinueOnFailure bool              // Keep dispatching after a failed run
	Shell             string            // Shell override, empty for the platform default
	WorkingDirectory  string            // Working directory of every run
	Env               map[string]string // Extra environment variables
	RunTimeout        time.Duration     // Per-run timeout, zero for none
}

// Defaults returns a Config with the default settings and no command.
func Defaults() *Config {
	return &Config{
		MaxRuns:      DefaultMaxRuns,
		PoolSize:     DefaultPoolSize,
		CounterToken: DefaultCounterToken,
		Env:          make(map[string]string),
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	clone.Env = maps.Clone(c.Env)

	if clone.Env == nil {
		clone.Env = make(map[string]string)
	}

	return &clone
}

// Validate checks c and returns ErrInvalidConfig joined with every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.Command) == "" {
		result = multierror.Append(result, ErrEmptyCommand)
	}

	if c.MaxRuns <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: got %d", ErrMaxRuns, c.MaxRuns))
	}

	if c.PoolSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: got %d", ErrPoolSize, c.PoolSize))
	}

	if c.CounterToken == "" {
		result = multierror.Append(result, ErrCounterToken)
	}

	if c.RunTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: got %s", ErrRunTimeout, c.RunTimeout))
	}

	for k := range c.Env {
		if k == "" || strings.Contains(k, "=") {
			result = multierror.Append(result, fmt.Errorf("%w: %q", ErrEnvKey, k))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	return nil
}
