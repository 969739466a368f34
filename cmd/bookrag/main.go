// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command bookrag serves the book's RAG question-answering API.
//
// Usage:
//
//	bookrag serve --config config.yaml
//	bookrag version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kadirpekel/bookrag/pkg/agent"
	"github.com/kadirpekel/bookrag/pkg/config"
	"github.com/kadirpekel/bookrag/pkg/embedder"
	"github.com/kadirpekel/bookrag/pkg/httpapi"
	"github.com/kadirpekel/bookrag/pkg/llm"
	"github.com/kadirpekel/bookrag/pkg/obslog"
	"github.com/kadirpekel/bookrag/pkg/obstrace"
	"github.com/kadirpekel/bookrag/pkg/pipeline"
	"github.com/kadirpekel/bookrag/pkg/retrieval"
	"github.com/kadirpekel/bookrag/pkg/router"
	"github.com/kadirpekel/bookrag/pkg/session"
	"github.com/kadirpekel/bookrag/pkg/vector"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the chatbot HTTP server."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	v := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			v = info.Main.Version
		}
	}
	fmt.Printf("bookrag version %s\n", v)
	return nil
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Config string `short:"c" help:"Path to config file." type:"path"`
}

func (c *ServeCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := obslog.ParseLevel(cfg.Logger.Level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logFile := os.Stderr
	if cfg.Logger.File != "" {
		f, cleanup, err := obslog.OpenLogFile(cfg.Logger.File)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer cleanup()
		logFile = f
	}
	obslog.Init(level, logFile, cfg.Logger.Format)

	shutdownTracing, err := obstrace.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	embed, err := embedder.New(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	defer embed.Close()

	store, err := vector.New(cfg.Vector)
	if err != nil {
		return fmt.Errorf("build vector store: %w", err)
	}
	defer store.Close()

	metricsRegistry := prometheus.NewRegistry()
	retrievalMetrics := retrieval.NewMetrics(metricsRegistry)

	retrievalSkill, err := retrieval.New(ctx, embed, store, retrieval.Config{
		Collection:   cfg.Retrieval.Collection,
		DefaultLimit: cfg.Retrieval.DefaultLimit,
		MaxLimit:     cfg.Retrieval.MaxLimit,
		ScoreFloor:   cfg.Retrieval.ScoreFloor,
	}, retrievalMetrics)
	if err != nil {
		return fmt.Errorf("build retrieval skill: %w", err)
	}
	defer retrievalSkill.Close()

	llmProvider, err := llm.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}
	defer llmProvider.Close()

	sessionStore, err := session.New(cfg.Session)
	if err != nil {
		return fmt.Errorf("build session store: %w", err)
	}
	defer sessionStore.Close()

	reg := agent.NewRegistry()
	for _, a := range []agent.Agent{
		agent.NewGlossaryAgent(retrievalSkill, llmProvider),
		agent.NewHardwareAgent(retrievalSkill, llmProvider),
		agent.NewModuleInfoAgent(retrievalSkill, llmProvider),
		agent.NewCapstoneAgent(retrievalSkill, llmProvider),
		agent.NewFallbackAgent(retrievalSkill, llmProvider),
	} {
		if err := reg.Register(a); err != nil {
			return fmt.Errorf("register agent: %w", err)
		}
	}
	if err := reg.SetFallback(cfg.Router.DefaultAgent); err != nil {
		return fmt.Errorf("set fallback agent: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("validate agent registry: %w", err)
	}

	r := router.New(reg, router.Config{
		ConfidenceThreshold: cfg.Router.ConfidenceThreshold,
		SecondaryTopK:       cfg.Router.SecondaryTopK,
	})

	pl := pipeline.New(reg, r, sessionStore, pipeline.Config{
		HistoryWindow: cfg.History.Window,
		SoftTimeout:   time.Duration(cfg.Agent.SoftTimeoutSeconds) * time.Second,
		HardTimeout:   time.Duration(cfg.Agent.HardTimeoutSeconds) * time.Second,
	})

	api := httpapi.New(pl, reg, cfg.Server.CORSOrigins)

	mux := api.Router()
	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := retrievalSkill.CheckHealth(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("bookrag server starting", "address", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bookrag"),
		kong.Description("Book RAG chatbot server."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
