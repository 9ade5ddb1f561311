package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/opencart-qa/internal/credential"
	"github.com/nhle/opencart-qa/internal/model"
	"github.com/nhle/opencart-qa/internal/opencart"
	"github.com/nhle/opencart-qa/internal/store"
	"github.com/nhle/opencart-qa/internal/theme"
	"github.com/nhle/opencart-qa/internal/ui/progress"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the global flags and the resources built from them.
type app struct {
	configPath    string
	endpointsPath string
	envPath       string
	logLevel      string
	logDir        string
	plain         bool

	logger  *slog.Logger
	cleanup func() error
	secrets *credential.Store
}

func newRootCmd() *cobra.Command {
	a := &app{cleanup: func() error { return nil }}

	root := &cobra.Command{
		Use:           "qakit",
		Short:         "QA support tooling for the OpenCart storefront and REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, cleanup, err := setupLogger(a.logLevel, a.logDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.logger = logger
			a.cleanup = cleanup
			slog.SetDefault(logger)

			if a.plain || !progress.IsTerminal(cmd.OutOrStdout()) {
				theme.Plain()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.cleanup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", model.DefaultConfigPath(), "Path to the config file (ini, json, yaml, toml)")
	flags.StringVar(&a.endpointsPath, "endpoints", model.DefaultEndpointsPath(), "Path to the REST endpoint catalogue")
	flags.StringVar(&a.envPath, "env", ".env", "Optional dotenv file with mailbox overrides")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logDir, "log-dir", "", "Also write logs to a timestamped file in this directory")
	flags.BoolVar(&a.plain, "plain", false, "Disable colors and the progress spinner")

	root.AddCommand(
		newLinkCmd(a),
		newRunCmd(a),
		newUserCmd(a),
		newAPICmd(a),
		newCredsCmd(a),
		newFixtureCmd(),
	)
	return root
}

// setupLogger builds a text logger on w at the given level, teeing into a
// timestamped file under logDir when set. The returned cleanup closes that
// file.
func setupLogger(levelName, logDir string, w io.Writer) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch strings.ToLower(levelName) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info", "":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return nil, nil, fmt.Errorf("unknown log level %q", levelName)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(logDir, fmt.Sprintf("qakit-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(w, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), cleanup, nil
}

func (a *app) loadConfig() (*model.AppConfig, error) {
	return model.LoadConfig(a.configPath, a.envPath)
}

// resolve returns value with a keyring reference replaced by its secret.
// The keyring is only opened when a reference is actually used.
func (a *app) resolve(key, value string) (string, error) {
	if !credential.IsRef(value) {
		return value, nil
	}
	secrets, err := a.keyring()
	if err != nil {
		return "", err
	}
	resolved, err := credential.Resolve(secrets, value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return resolved, nil
}

func (a *app) keyring() (*credential.Store, error) {
	if a.secrets != nil {
		return a.secrets, nil
	}
	secrets, err := credential.Open()
	if err != nil {
		return nil, err
	}
	a.secrets = secrets
	return secrets, nil
}

func (a *app) openStore(ctx context.Context, cfg *model.AppConfig) (*store.SQLStore, error) {
	dbCfg := cfg.MySQL
	password, err := a.resolve("mysql.password", dbCfg.Password)
	if err != nil {
		return nil, err
	}
	dbCfg.Password = password

	var s *store.SQLStore
	err = a.spin(ctx, "Connecting to "+dbCfg.Driver, func(ctx context.Context) error {
		var err error
		s, err = store.Open(ctx, dbCfg)
		return err
	})
	if err != nil {
		// A cancel can land after the store was opened.
		if s != nil {
			_ = s.Close()
		}
		return nil, err
	}
	return s, nil
}

func (a *app) client(cfg *model.AppConfig) (*opencart.Client, error) {
	endpoints, err := model.LoadEndpoints(a.endpointsPath)
	if err != nil {
		return nil, err
	}
	return opencart.NewClient(cfg.RestAPI, cfg.ContentType, endpoints, a.logger)
}

func (a *app) spin(ctx context.Context, title string, fn func(context.Context) error) error {
	return progress.Run(ctx, os.Stderr, title, a.plain, fn)
}

// field prints a labelled value on w.
func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", theme.MutedStyle.Render(label+":"), value)
}
