// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the deflake command: it builds the configuration from
// flags and an optional config file, runs the session and sets the exit status.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/matt-FFFFFF/deflake/internal/color"
	"github.com/matt-FFFFFF/deflake/internal/config"
	"github.com/matt-FFFFFF/deflake/internal/ctxlog"
	"github.com/matt-FFFFFF/deflake/internal/deflaker"
	"github.com/matt-FFFFFF/deflake/internal/report"
	"github.com/matt-FFFFFF/deflake/internal/tui"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	maxRunsFlag           = "max-runs"
	poolSizeFlag          = "pool-size"
	counterTokenFlag      = "counter-token"
	quietFlag             = "quiet"
	continueOnFailureFlag = "continue-on-failure"
	timeoutFlag           = "timeout"
	shellFlag             = "shell"
	cwdFlag               = "cwd"
	envFlag               = "env"
	configFlag            = "config"
	outFlag               = "out"
	tuiFlag               = "tui"
	cliExitStr            = ""

	// CancelledMessage is printed when the session is interrupted.
	CancelledMessage = "cancelled by user"
)

var (
	// ErrInvalidEnvFlag is returned when an --env value is not of the form KEY=VALUE.
	ErrInvalidEnvFlag = errors.New("environment variables must be given as KEY=VALUE")
	// ErrTooManyArguments is returned when more than one positional argument is given.
	ErrTooManyArguments = errors.New("expected a single command argument, quote the command")
)

// ReportFsFactory returns the file system the --out report is written to.
var ReportFsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// NewCommand returns the deflake root command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:      "deflake",
		Usage:     "run a command repeatedly until it fails",
		UsageText: `deflake [options] "<command>"`,
		Description: `deflake runs a shell command repeatedly, optionally several at once,
until it exits with a non-zero status or the maximum number of runs is reached.
Use it to reproduce intermittent failures.

Every occurrence of the counter token in the command is replaced by the run index,
which is also available to the command as $DEFLAKE_RUN_INDEX.

Config files may be YAML (.yaml, .yml) or HCL (.hcl). Flags given on the command line
override values from the file. Remote config files use Hashicorp's go-getter syntax,
see https://github.com/hashicorp/go-getter.`,
		Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
		Authors: []any{
			"Matt White (matt-FFFFFF)",
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    maxRunsFlag,
				Aliases: []string{"m"},
				Usage:   "Maximum number of runs if the command keeps passing",
				Value:   config.DefaultMaxRuns,
			},
			&cli.IntFlag{
				Name:    poolSizeFlag,
				Aliases: []string{"p"},
				Usage:   "Number of runs executed concurrently",
				Value:   config.DefaultPoolSize,
			},
			&cli.StringFlag{
				Name:    counterTokenFlag,
				Aliases: []string{"c"},
				Usage:   "Token in the command that is replaced by the run index",
				Value:   config.DefaultCounterToken,
			},
			&cli.BoolFlag{
				Name:    quietFlag,
				Aliases: []string{"q"},
				Usage:   "Do not print a line for every run",
			},
			&cli.BoolFlag{
				Name:    continueOnFailureFlag,
				Aliases: []string{"k"},
				Usage:   "Keep running after a failure",
			},
			&cli.DurationFlag{
				Name:    timeoutFlag,
				Aliases: []string{"t"},
				Usage:   "Kill a run and count it as failed after this duration, e.g. 30s",
			},
			&cli.StringFlag{
				Name:  shellFlag,
				Usage: "Shell used to run the command, defaults to /bin/sh (cmd.exe on Windows)",
			},
			&cli.StringFlag{
				Name:      cwdFlag,
				Usage:     "Working directory of every run",
				TakesFile: true,
			},
			&cli.StringSliceFlag{
				Name:    envFlag,
				Aliases: []string{"e"},
				Usage:   "Extra environment variable KEY=VALUE, can be given multiple times",
			},
			&cli.StringFlag{
				Name:      configFlag,
				Aliases:   []string{"f"},
				Usage:     "Config file, a local path or a go-getter URL",
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:      outFlag,
				Aliases:   []string{"o"},
				Usage:     "Write a YAML report of the session to this file",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:  tuiFlag,
				Usage: "Show an interactive view of the session",
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("running deflake command")

	cfg, err := buildConfig(ctx, cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var (
		runner *tui.Runner
		tuiLog *bytes.Buffer
		runCtx = ctx
		opts   = []deflaker.Option{deflaker.WithOutput(cmd.Root().Writer)}
	)

	if cmd.Bool(tuiFlag) {
		logger.Info("starting interactive TUI mode")

		// Log output is buffered while the TUI owns the terminal.
		tuiLog = new(bytes.Buffer)
		runCtx = ctxlog.NewForTUI(ctx, tuiLog)
		runner = tui.NewRunner(runCtx, cfg)
		opts = []deflaker.Option{deflaker.WithReporter(runner.Reporter())}
	}

	d, err := deflaker.New(cfg, opts...)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var (
		res    *deflaker.Result
		runErr error
	)

	if runner == nil {
		res, runErr = d.Run(runCtx)
	} else {
		var tuiErr error

		res, runErr, tuiErr = runner.Run(runCtx, d)

		tuiLog.WriteTo(cmd.Root().ErrWriter) //nolint:errcheck

		if tuiErr != nil {
			logger.Error(fmt.Sprintf("TUI execution error: %s", tuiErr.Error()), "error", tuiErr.Error())
		}
	}

	if out := cmd.String(outFlag); out != "" && res != nil {
		if err := report.New(d.Config(), res).WriteFile(ReportFsFactory(), out); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		logger.Info(fmt.Sprintf("report written to %s", out))
	}

	if errors.Is(runErr, deflaker.ErrCancelled) {
		fmt.Fprintln(cmd.Root().ErrWriter, color.Warn(CancelledMessage)) //nolint:errcheck
		return cli.Exit(cliExitStr, 1)
	}

	if runErr != nil {
		return cli.Exit(runErr.Error(), 1)
	}

	if !cfg.Quiet && !cmd.Bool(tuiFlag) {
		writeSummary(cmd.Root().Writer, res)
	}

	if res.HasFailure() {
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

func writeSummary(w io.Writer, res *deflaker.Result) {
	s := res.Summary
	line := fmt.Sprintf("%d runs, %d passed, %d failed", s.Total, s.Passed, s.Failed)

	if first, ok := res.FirstFailure(); ok {
		line += fmt.Sprintf(" (first failure: run %d)", first.Index)
		line = color.Fail(line)
	} else {
		line = color.Pass(line)
	}

	fmt.Fprintln(w, line) //nolint:errcheck
}

// buildConfig layers defaults, the config file, flags and the positional command.
func buildConfig(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	cfg := config.Defaults()

	if u := cmd.String(configFlag); u != "" {
		f, err := loadConfigFile(ctx, u)
		if err != nil {
			return nil, err
		}

		if err := f.Apply(cfg); err != nil {
			return nil, err
		}
	}

	if cmd.IsSet(maxRunsFlag) {
		cfg.MaxRuns = cmd.Int(maxRunsFlag)
	}

	if cmd.IsSet(poolSizeFlag) {
		cfg.PoolSize = cmd.Int(poolSizeFlag)
	}

	if cmd.IsSet(counterTokenFlag) {
		cfg.CounterToken = cmd.String(counterTokenFlag)
	}

	if cmd.IsSet(quietFlag) {
		cfg.Quiet = cmd.Bool(quietFlag)
	}

	if cmd.IsSet(continueOnFailureFlag) {
		cfg.ContinueOnFailure = cmd.Bool(continueOnFailureFlag)
	}

	if cmd.IsSet(timeoutFlag) {
		cfg.RunTimeout = cmd.Duration(timeoutFlag)
	}

	if cmd.IsSet(shellFlag) {
		cfg.Shell = cmd.String(shellFlag)
	}

	if cmd.IsSet(cwdFlag) {
		cfg.WorkingDirectory = cmd.String(cwdFlag)
	}

	for _, kv := range cmd.StringSlice(envFlag) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEnvFlag, kv)
		}

		cfg.Env[k] = v
	}

	switch args := cmd.Args(); args.Len() {
	case 0:
	case 1:
		cfg.Command = args.First()
	default:
		return nil, fmt.Errorf("%w: got %d arguments", ErrTooManyArguments, args.Len())
	}

	ctxlog.Debug(ctx, "configuration built",
		"maxRuns", cfg.MaxRuns,
		"poolSize", cfg.PoolSize,
		"continueOnFailure", cfg.ContinueOnFailure)

	return cfg, nil
}

// loadConfigFile reads a local config file, or fetches it with go-getter when
// it does not exist on the local file system.
func loadConfigFile(ctx context.Context, u string) (*config.File, error) {
	if ok, _ := afero.Exists(config.FsFactory(), u); ok {
		return config.LoadFile(u)
	}

	b, name, err := getURL(ctx, u)
	if err != nil {
		return nil, err
	}

	return config.Parse(name, b)
}
