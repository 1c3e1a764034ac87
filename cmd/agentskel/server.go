package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/agentskel/internal/api"
	"github.com/kalambet/agentskel/internal/config"
	"github.com/kalambet/agentskel/internal/knowledge"
	"github.com/kalambet/agentskel/internal/pipeline"
	"github.com/kalambet/agentskel/internal/proxy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

// loadTables returns the embedded knowledge tables, or the tables read from
// knowledge.path when it is set.
func loadTables(cfg config.Config) (*knowledge.Tables, error) {
	if cfg.Knowledge.Path == "" {
		return knowledge.Default()
	}
	t, err := knowledge.LoadDir(cfg.Knowledge.Path)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge from %s: %w", cfg.Knowledge.Path, err)
	}
	return t, nil
}

// buildAgent wires an Agent for cfg. Mock mode leaves the completer nil.
func buildAgent(cfg config.Config, t *knowledge.Tables) (*pipeline.Agent, error) {
	opts := pipeline.Options{
		Models: pipeline.Models{
			Planner:  cfg.Models.Planner,
			Executor: cfg.Models.Executor,
			Enhancer: cfg.Models.Enhancer,
		},
		MaxParallel: cfg.Planner.MaxParallel,
		NumKeywords: cfg.RAG.NumKeywords,
	}

	if cfg.Mode() == pipeline.ModeAzure {
		client, err := proxy.NewClient(proxy.Options{
			Endpoint:   cfg.Azure.Endpoint,
			APIKey:     cfg.Azure.APIKey,
			APIVersion: cfg.Azure.APIVersion,
			Timeout:    cfg.LLMTimeout(),
			MaxRetries: cfg.LLM.MaxRetries,
			CacheSize:  cfg.LLM.CacheSize,
		})
		if err != nil {
			return nil, fmt.Errorf("creating azure client: %w", err)
		}
		opts.Completer = client
	}

	return pipeline.New(t, opts), nil
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "agentskel version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	tables, err := loadTables(cfg)
	if err != nil {
		return err
	}
	agent, err := buildAgent(cfg, tables)
	if err != nil {
		return err
	}
	slog.Info("agent ready", "mode", agent.Mode(), "categories", len(tables.Categories), "domains", len(tables.Domains))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewAgentHandler(agent, api.HealthInfo{Model: cfg.Models.Planner, Version: version}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "agentskel listening on %s (%s mode)\n", cfg.Addr(), agent.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if withMCP {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(agent, version))
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type healthPayload struct {
	Status  string `json:"status"`
	Mode    string `json:"mode"`
	Model   string `json:"model"`
	Version string `json:"version"`
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var health healthPayload
	resp, err := client.get(ctx, "/health")
	switch {
	case err != nil:
		printStatus("Server", "stopped")
	case decodeJSON(resp, &health) != nil:
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	default:
		printHealth(health, cfg.Addr())
	}

	printStatus("Configured mode", "%s", cfg.Mode())
	printStatus("Planner model", "%s", cfg.Models.Planner)
	printStatus("Executor model", "%s", cfg.Models.Executor)
	printStatus("Enhancer model", "%s", cfg.Models.Enhancer)
	if cfg.Knowledge.Path != "" {
		printStatus("Knowledge", "%s", cfg.Knowledge.Path)
	} else {
		printStatus("Knowledge", "embedded")
	}
	return nil
}
