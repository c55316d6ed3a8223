// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrReadConfigFile is returned when the config file cannot be read.
	ErrReadConfigFile = errors.New("failed to read config file")
	// ErrParseConfigFile is returned when the config file cannot be decoded.
	ErrParseConfigFile = errors.New("failed to parse config file")
	// ErrUnknownFormat is returned when the file extension is not .yaml, .yml or .hcl.
	ErrUnknownFormat = errors.New("unknown config file format, expected .yaml, .yml or .hcl")
)

// File is the content of a config file. Nil fields were not set in the file.
type File struct {
	Command           *string           `yaml:"command" hcl:"command,optional"`
	MaxRuns           *int              `yaml:"max_runs" hcl:"max_runs,optional"`
	PoolSize          *int              `yaml:"pool_size" hcl:"pool_size,optional"`
	CounterToken      *string           `yaml:"counter_token" hcl:"counter_token,optional"`
	Quiet             *bool             `yaml:"quiet" hcl:"quiet,optional"`
	ContinueOnFailure *bool             `yaml:"continue_on_failure" hcl:"continue_on_failure,optional"`
	Shell             *string           `yaml:"shell" hcl:"shell,optional"`
	WorkingDirectory  *string           `yaml:"working_directory" hcl:"working_directory,optional"`
	Env               map[string]string `yaml:"env" hcl:"env,optional"`
	RunTimeout        *string           `yaml:"run_timeout" hcl:"run_timeout,optional"`
}

// LoadFile reads and parses the config file at path from FsFactory.
func LoadFile(path string) (*File, error) {
	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrReadConfigFile, err)
	}

	return Parse(path, data)
}

// Parse decodes data, choosing the format from the extension of name.
func Parse(name string, data []byte) (*File, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".hcl":
		return parseHCL(name, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

func parseYAML(data []byte) (*File, error) {
	f := new(File)

	if err := yaml.UnmarshalWithOptions(data, f, yaml.Strict()); err != nil {
		return nil, errors.Join(ErrParseConfigFile, err)
	}

	return f, nil
}

func parseHCL(name string, data []byte) (*File, error) {
	file, diags := hclsyntax.ParseConfig(data, name, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, errors.Join(ErrParseConfigFile, diags)
	}

	f := new(File)

	if diags := gohcl.DecodeBody(file.Body, EvalContext(), f); diags.HasErrors() {
		return nil, errors.Join(ErrParseConfigFile, diags)
	}

	return f, nil
}

// EvalContext returns the variables available to HCL expressions:
// env holds the process environment and num_cpu the number of logical CPUs.
func EvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}

		vars[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":     cty.ObjectVal(vars),
			"num_cpu": cty.NumberIntVal(int64(runtime.NumCPU())),
		},
	}
}

// Apply overlays the fields set in f onto c.
func (f *File) Apply(c *Config) error {
	if f == nil {
		return nil
	}

	setIf(&c.Command, f.Command)
	setIf(&c.MaxRuns, f.MaxRuns)
	setIf(&c.PoolSize, f.PoolSize)
	setIf(&c.CounterToken, f.CounterToken)
	setIf(&c.Quiet, f.Quiet)
	setIf(&c.ContinueOnFailure, f.ContinueOnFailure)
	setIf(&c.Shell, f.Shell)
	setIf(&c.WorkingDirectory, f.WorkingDirectory)

	if len(f.Env) > 0 && c.Env == nil {
		c.Env = make(map[string]string, len(f.Env))
	}

	for k, v := range f.Env {
		c.Env[k] = v
	}

	if f.RunTimeout != nil && *f.RunTimeout != "" {
		d, err := time.ParseDuration(*f.RunTimeout)
		if err != nil {
			return errors.Join(ErrInvalidConfig, fmt.Errorf("%w: %w", ErrRunTimeout, err))
		}

		c.RunTimeout = d
	}

	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
