// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package report writes the result of a deflake session as YAML.
package report

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/deflake/internal/aggregate"
	"github.com/matt-FFFFFF/deflake/internal/config"
	"github.com/matt-FFFFFF/deflake/internal/deflaker"
	"github.com/spf13/afero"
)

// ErrWriteReport is returned when the report cannot be encoded or written.
var ErrWriteReport = errors.New("failed to write report")

// Report is the document written for a session.
type Report struct {
	RunID     string            `yaml:"run_id"`
	State     string            `yaml:"state"`
	Started   time.Time         `yaml:"started"`
	Duration  string            `yaml:"duration"`
	Summary   aggregate.Summary `yaml:"summary"`
	Config    Config            `yaml:"config"`
	FirstFail int               `yaml:"first_failure,omitempty"`
	Runs      []Run             `yaml:"runs"`
}

// Config is the configuration section of a report.
type Config struct {
	Command           string            `yaml:"command"`
	MaxRuns           int               `yaml:"max_runs"`
	PoolSize          int               `yaml:"pool_size"`
	CounterToken      string            `yaml:"counter_token"`
	ContinueOnFailure bool              `yaml:"continue_on_failure"`
	Shell             string            `yaml:"shell,omitempty"`
	WorkingDirectory  string            `yaml:"working_directory,omitempty"`
	Env               map[string]string `yaml:"env,omitempty"`
	RunTimeout        string            `yaml:"run_timeout,omitempty"`
}

// Run is a single recorded run.
type Run struct {
	Index       int    `yaml:"index"`
	Status      string `yaml:"status"`
	ExitCode    int    `yaml:"exit_code"`
	Duration    string `yaml:"duration"`
	CommandLine string `yaml:"command_line"`
	Message     string `yaml:"message"`
	Error       string `yaml:"error,omitempty"`
}

// New builds the report for res, run with cfg.
func New(cfg *config.Config, res *deflaker.Result) *Report {
	r := &Report{
		RunID:    res.RunID,
		State:    res.State.String(),
		Started:  res.Started.UTC(),
		Duration: res.Duration.Round(time.Millisecond).String(),
		Summary:  res.Summary,
		Runs:     make([]Run, 0, len(res.Outcomes)),
	}

	if cfg != nil {
		r.Config = Config{
			Command:           cfg.Command,
			MaxRuns:           cfg.MaxRuns,
			PoolSize:          cfg.PoolSize,
			CounterToken:      cfg.CounterToken,
			ContinueOnFailure: cfg.ContinueOnFailure,
			Shell:             cfg.Shell,
			WorkingDirectory:  cfg.WorkingDirectory,
			Env:               cfg.Env,
		}

		if cfg.RunTimeout > 0 {
			r.Config.RunTimeout = cfg.RunTimeout.String()
		}
	}

	if first, ok := res.FirstFailure(); ok {
		r.FirstFail = first.Index
	}

	for _, o := range res.Outcomes {
		run := Run{
			Index:       o.Index,
			Status:      o.Status.String(),
			ExitCode:    o.ExitCode,
			Duration:    o.Duration.Round(time.Millisecond).String(),
			CommandLine: o.CommandLine,
			Message:     strings.TrimSpace(o.Message),
		}

		if o.Err != nil {
			run.Error = o.Err.Error()
		}

		r.Runs = append(r.Runs, run)
	}

	return r
}

// Write encodes r as YAML to w.
func (r *Report) Write(w io.Writer) error {
	b, err := yaml.MarshalWithOptions(r, yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return errors.Join(ErrWriteReport, err)
	}

	if _, err := w.Write(b); err != nil {
		return errors.Join(ErrWriteReport, err)
	}

	return nil
}

// WriteFile writes r to name on fs, replacing any existing file.
func (r *Report) WriteFile(fs afero.Fs, name string) error {
	f, err := fs.Create(name)
	if err != nil {
		return errors.Join(ErrWriteReport, err)
	}

	if err := r.Write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}

	if err := f.Close(); err != nil {
		return errors.Join(ErrWriteReport, err)
	}

	return nil
}
