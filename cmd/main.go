package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"ewscal/internal/config"
	"ewscal/internal/google"
	"ewscal/internal/icloud"
	"ewscal/internal/metrics"
	"ewscal/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "ewscal",
		Usage: "Inspect, edit and sync calendar items with dirty-field tracking.",
		Commands: []*cli.Command{
			authCommand(),
			syncCommand(),
			fieldsCommand(),
			showCommand(),
			editCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run the calendar synchronization process.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the sync cycle once and exit."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Run sync every N seconds. Overrides --once."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}
			if err := cfg.ValidateICloud(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			if cfg.MetricsAddr != "" {
				go serveMetrics(logger, reg, cfg.MetricsAddr)
			}

			sources, err := googleSources(c.Context, logger, cfg, m)
			if err != nil {
				return err
			}
			logger.Info("Initialized Google calendars for all accounts.", "count", len(sources))

			iClient, err := newICloudClient(logger, cfg, m)
			if err != nil {
				return err
			}

			s, err := syncer.NewSyncer(logger, sources, iClient, syncer.Config{
				StateFile: cfg.StateFile,
				Days:      cfg.SyncDays,
				DryRun:    c.Bool("dry-run"),
				Location:  cfg.Location,
			}, m)
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			// --watch flag takes precedence
			if c.IsSet("watch") {
				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					if err := s.Sync(c.Context); err != nil {
						logger.Error("Sync cycle failed", "error", err)
					}
					select {
					case <-c.Context.Done():
						return nil
					case <-ticker.C:
					}
				}
			}

			// --once is the default behavior if --watch is not set
			logger.Info("Running a single sync cycle.")
			if err := s.Sync(c.Context); err != nil {
				return fmt.Errorf("single sync cycle failed: %w", err)
			}
			return nil
		},
	}
}

// googleSources builds one source per calendar of every authenticated account.
// Accounts without configured calendar IDs sync all their calendars.
func googleSources(ctx context.Context, logger *slog.Logger, cfg config.Config, m *metrics.Metrics) ([]syncer.Source, error) {
	accounts, err := google.GetTokenAccounts(".")
	if err != nil {
		return nil, fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no google accounts found. Run the 'auth' command first")
	}

	var sources []syncer.Source
	for _, acc := range accounts {
		gClient, err := google.NewClient(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, acc)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client for account %s: %w", acc, err)
		}
		gClient.WithMetrics(m)

		calendarIDs := cfg.GoogleCalendarIDs
		if len(calendarIDs) == 0 {
			calendarIDs, err = gClient.DiscoverGoogleCalendars(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to discover calendars for account %s: %w", acc, err)
			}
			logger.Info("Discovered Google calendars.", "account", acc, "count", len(calendarIDs))
		}
		for _, id := range calendarIDs {
			sources = append(sources, gClient.Events(id))
		}
	}
	return sources, nil
}

func newICloudClient(logger *slog.Logger, cfg config.Config, m *metrics.Metrics) (*icloud.CalDAVClient, error) {
	if err := cfg.ValidateICloud(); err != nil {
		return nil, err
	}
	iClient, err := icloud.NewClient(logger, cfg.ICloudUsername, cfg.ICloudPassword, cfg.ICloudCalendarName)
	if err != nil {
		return nil, fmt.Errorf("failed to create icloud client: %w", err)
	}
	return iClient.WithLocation(cfg.Location).WithMetrics(m), nil
}

func serveMetrics(logger *slog.Logger, reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger.Info("Serving metrics.", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", "error", err)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
