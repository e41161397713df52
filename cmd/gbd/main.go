// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command gbd computes Groebner bases.
//
// Usage:
//
//	gbd compute --problem trinks.yaml
//	gbd compute --config gb.yaml --problem trinks.yaml --strategy parallel
//	gbd coordinator --problem trinks.yaml --local-workers 2
//	gbd worker --problem trinks.yaml --addr 127.0.0.1:7420
//
// A worker loads the same problem file as its coordinator to learn the
// ring; the coordinator checks ring and variant on attach.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/groebner/pkg/logging"
	"github.com/AleutianAI/groebner/services/gb/config"
	"github.com/AleutianAI/groebner/services/gb/telemetry"
)

var (
	configPath   string
	problemPath  string
	logLevel     string
	strategy     string
	threads      int
	extended     bool
	localWorkers int
	workerAddr   string
	workerID     string

	rootCmd = &cobra.Command{
		Use:           "gbd",
		Short:         "Groebner basis engine",
		Long:          "gbd computes Groebner bases sequentially, on a thread pool, or across worker processes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	computeCmd = &cobra.Command{
		Use:   "compute",
		Short: "Compute the Groebner basis of a problem file",
		RunE:  runCompute,
	}

	coordinatorCmd = &cobra.Command{
		Use:   "coordinator",
		Short: "Serve a problem to workers and compute its basis",
		RunE:  runCoordinator,
	}

	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "Reduce pairs for a coordinator",
		RunE:  runWorker,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML or JSON config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&problemPath, "problem", "", "YAML or JSON problem file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	_ = rootCmd.MarkPersistentFlagRequired("problem")

	rootCmd.AddCommand(computeCmd)
	computeCmd.Flags().StringVar(&strategy, "strategy", "", "Override strategy: sequential, parallel or distributed")
	computeCmd.Flags().IntVar(&threads, "threads", 0, "Override the parallel worker count")
	computeCmd.Flags().BoolVar(&extended, "extended", false, "Also compute the conversion matrices (field coefficients only)")

	rootCmd.AddCommand(coordinatorCmd)
	coordinatorCmd.Flags().IntVar(&localWorkers, "local-workers", 0, "In-process workers to attach besides remote ones")

	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().StringVar(&workerAddr, "addr", "", "Coordinator host:port or ws:// URL (defaults to distributed.host:port)")
	workerCmd.Flags().StringVar(&workerID, "id", "", "Worker id shown in coordinator logs")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gbd:", err)
		os.Exit(1)
	}
}

func runCompute(cmd *cobra.Command, _ []string) error {
	return execute(cmd, "gbd", func(env *runEnv) error {
		if strategy != "" {
			env.cfg.Strategy = strategy
		}
		if threads > 0 {
			env.cfg.Threads = threads
		}
		env.mode = modeCompute
		env.extended = extended
		return env.cfg.Validate()
	})
}

func runCoordinator(cmd *cobra.Command, _ []string) error {
	return execute(cmd, "gbd-coordinator", func(env *runEnv) error {
		env.mode = modeCoordinator
		env.localWorkers = localWorkers
		return nil
	})
}

func runWorker(cmd *cobra.Command, _ []string) error {
	return execute(cmd, "gbd-worker", func(env *runEnv) error {
		env.mode = modeWorker
		env.addr = workerAddr
		if env.addr == "" {
			env.addr = env.cfg.Distributed.Addr()
		}
		env.workerID = workerID
		return nil
	})
}

// execute resolves config, logging and telemetry, lets the command adjust
// the environment, and runs the problem.
func execute(cmd *cobra.Command, service string, prepare func(*runEnv) error) error {
	ctx := cmd.Context()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := logging.New(cfg.Logging.ToLogging(service))
	defer logger.Close()
	slog.SetDefault(logger.Slog())
	gin.SetMode(gin.ReleaseMode)

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry.ToTelemetry(service))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	env := &runEnv{cfg: cfg, logger: logger.Slog(), out: cmd.OutOrStdout()}
	if err := prepare(env); err != nil {
		return err
	}

	p, err := loadProblem(problemPath)
	if err != nil {
		return err
	}
	logger.Info("problem loaded",
		slog.String("name", p.Name),
		slog.String("coefficients", p.Coefficients),
		slog.String("variant", p.variantName()),
		slog.Int("polynomials", len(p.Polynomials)),
	)
	return runProblem(ctx, env, p)
}
