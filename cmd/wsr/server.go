package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/wsr/internal/api"
	"github.com/kalambet/wsr/internal/config"
	"github.com/kalambet/wsr/internal/foodai"
	"github.com/kalambet/wsr/internal/hevy"
	"github.com/kalambet/wsr/internal/profile"
	"github.com/kalambet/wsr/internal/review"
	"github.com/kalambet/wsr/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the wsr server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running wsr server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show wsr system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the review tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "wsr.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func initLogging(cfg config.Config) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// buildDeps wires the handler dependencies shared by the HTTP server
// and the MCP stdio server.
func buildDeps(cfg config.Config, store *storage.Store) api.Deps {
	var food *foodai.Client
	if cfg.OpenAI.BaseURL != "" {
		food = foodai.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	} else {
		food = foodai.NewClient(cfg.OpenAI.APIKey)
	}

	return api.Deps{
		Store:   store,
		Profile: profile.NewManager(store),
		State:   api.NewState(),
		Hevy:    hevy.NewClient(cfg.Hevy.APIKey, cfg.Hevy.BaseURL),
		Food:    food,

		HevyWebhookSecret:   cfg.Hevy.WebhookSecret,
		WithingsClientID:    cfg.Withings.ClientID,
		WithingsRedirectURI: cfg.Withings.RedirectURI,
	}
}

// seedSectors installs the starter contract set on first run.
func seedSectors(store *storage.Store) error {
	existing, err := store.ListSectors()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	if err := store.ReplaceSectors(review.StarterContracts()); err != nil {
		return err
	}
	slog.Info("seeded starter sectors")
	return nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "wsr version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	initLogging(cfg)

	// Refuse to start a second instance.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/api/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("wsr is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("wsr is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	if err := seedSectors(store); err != nil {
		return fmt.Errorf("seeding sectors: %w", err)
	}

	if cfg.Hevy.APIKey == "" {
		slog.Warn("HEVY_API_KEY not set, Hevy summary will report disconnected")
	}
	if cfg.OpenAI.APIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, food analysis will use deterministic fallbacks")
	}

	handler := api.NewHandler(buildDeps(cfg, store))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("wsr listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	initLogging(cfg)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	if err := seedSectors(store); err != nil {
		return fmt.Errorf("seeding sectors: %w", err)
	}

	mcpSrv := api.NewMCPServer(buildDeps(cfg, store))
	return server.ServeStdio(mcpSrv)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("wsr is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop wsr (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to wsr (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/api/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Hevy", "%s", credentialLabel(cfg.Hevy.APIKey))
	printStatus("Hevy webhook", "%s", credentialLabel(cfg.Hevy.WebhookSecret))
	printStatus("Withings", "%s", credentialLabel(cfg.Withings.ClientID))
	printStatus("Food model", "%s", credentialLabel(cfg.OpenAI.APIKey))

	if running {
		c := &apiClient{baseURL: serverURL, httpClient: client}
		var contracts []struct {
			Active bool `json:"active"`
		}
		if resp, err := c.get(context.Background(), "/api/sectors"); err == nil {
			if decodeJSON(resp, &contracts) == nil {
				active := 0
				for _, s := range contracts {
					if s.Active {
						active++
					}
				}
				printStatus("Sectors", "%d (%d active)", len(contracts), active)
			}
		}
		var weeks []struct {
			Week string `json:"week"`
		}
		if resp, err := c.get(context.Background(), "/api/weeks"); err == nil {
			if decodeJSON(resp, &weeks) == nil {
				printStatus("Locked weeks", "%d", len(weeks))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func credentialLabel(value string) string {
	if value == "" {
		return "not configured"
	}
	return "configured"
}
