package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/entrhq/chatsweep/pkg/executor/headless"
)

// runHeadless executes one job file unattended.
func runHeadless(ctx context.Context, f *Flags) error {
	job, err := loadAndValidateJob(f.HeadlessConfig)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, f)
	if err != nil {
		return err
	}
	defer s.Close()

	executor, err := headless.NewExecutor(s.ctrl, job)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	log.Printf("Starting headless run: action=%s dry_run=%v", job.Action, job.DryRun)
	startTime := time.Now()
	if runErr := executor.Run(ctx); runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	log.Printf("Run completed in %s", time.Since(startTime).Round(time.Millisecond))
	return nil
}

// loadAndValidateJob reads the YAML job before anything is launched.
func loadAndValidateJob(path string) (*headless.Config, error) {
	job, err := headless.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load headless config: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("invalid headless configuration: %w", err)
	}
	return job, nil
}
