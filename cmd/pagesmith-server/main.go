// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command pagesmith-server starts the pagesmith HTTP server.
//
// This is the entry point for the containerized service. Configuration is
// read from the file named by PAGESMITH_CONFIG (optional) and PAGESMITH_*
// environment variables.
//
// # Environment Variables
//
//   - PAGESMITH_CONFIG: YAML or JSON config file (optional)
//   - PAGESMITH_PORT: HTTP server port (default: 12230)
//   - PAGESMITH_STORE_BACKENDS: Store probe order (default: badger,sqlite,memory)
//   - PAGESMITH_LLM_BACKEND: none, openai or ollama (default: none)
//   - PAGESMITH_OTEL_ENDPOINT: OpenTelemetry collector (optional)
//
// # Usage
//
//	go build -o pagesmith-server ./cmd/pagesmith-server
//	./pagesmith-server
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/pagesmith/pkg/logging"
	"github.com/AleutianAI/pagesmith/services/pagesmith"
	"github.com/AleutianAI/pagesmith/services/pagesmith/config"
)

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.LoggingConfig(pagesmith.ServiceName))
	logger.Install()
	defer logger.Close()

	slog.Info("Starting pagesmith",
		"port", cfg.Server.Port,
		"store_backends", cfg.Store.Backends,
		"llm_backend", cfg.LLM.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Enterprise builds pass custom ServiceOptions here.
	svc, err := pagesmith.New(ctx, cfg, nil)
	if err != nil {
		slog.Error("Failed to create pagesmith service", "error", err)
		os.Exit(1)
	}

	if err := svc.Run(ctx); err != nil {
		slog.Error("pagesmith server error", "error", err)
		os.Exit(1)
	}
}
