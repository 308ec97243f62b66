package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/linkvault/audit"
	"github.com/kbukum/linkvault/auth/login"
	"github.com/kbukum/linkvault/auth/password"
	"github.com/kbukum/linkvault/config"
	"github.com/kbukum/linkvault/logger"
	"github.com/kbukum/linkvault/observability"
	"github.com/kbukum/linkvault/store/sqlstore"
	"github.com/kbukum/linkvault/version"
)

func (a *app) hashCommand() *Command {
	cmd := &Command{
		Name:        "hash",
		Description: "Read a password from stdin and print its bcrypt hash",
		Flags:       flag.NewFlagSet("hash", flag.ContinueOnError),
	}
	configPath := cmd.Flags.String("config", "", "Path to config.yml")
	cmd.Run = func(ctx context.Context, args []string) error {
		cfg, err := a.loadConfig(*configPath)
		if err != nil {
			return err
		}
		plaintext, err := a.readSecret()
		if err != nil {
			return err
		}
		if err := cfg.Password.CheckLength(plaintext); err != nil {
			return err
		}
		hash, err := password.NewHasher(cfg.Password).Hash(plaintext)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, hash)
		return nil
	}
	return cmd
}

func (a *app) verifyCommand() *Command {
	cmd := &Command{
		Name:        "verify",
		Description: "Check a password from stdin against a stored hash",
		Flags:       flag.NewFlagSet("verify", flag.ContinueOnError),
	}
	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("usage: %s verify <hash>", serviceName)
		}
		plaintext, err := a.readSecret()
		if err != nil {
			return err
		}
		res := password.NewVerifier(nil).Check(plaintext, args[0])
		fmt.Fprintf(a.stdout, "format: %s\nmatched: %t\n", res.Format, res.Matched)
		if res.NeedsUpgrade() {
			fmt.Fprintln(a.stdout, "upgrade: required on next login")
		}
		if !res.Matched {
			return fmt.Errorf("verification failed: %s", res.Failure)
		}
		return nil
	}
	return cmd
}

func (a *app) classifyCommand() *Command {
	cmd := &Command{
		Name:        "classify",
		Description: "Print the format of a stored hash",
		Flags:       flag.NewFlagSet("classify", flag.ContinueOnError),
	}
	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("usage: %s classify <hash>", serviceName)
		}
		fmt.Fprintf(a.stdout, "format: %s\nrequires_migration: %t\n",
			password.Classify(args[0]), password.RequiresMigration(args[0]))
		return nil
	}
	return cmd
}

func (a *app) auditCommand() *Command {
	cmd := &Command{
		Name:        "audit",
		Description: "Count stored hashes by format and optionally flag legacy accounts",
		Flags:       flag.NewFlagSet("audit", flag.ContinueOnError),
	}
	configPath := cmd.Flags.String("config", "", "Path to config.yml")
	flagLegacy := cmd.Flags.Bool("flag-legacy", false, "Mark legacy accounts as requiring a password reset")
	asJSON := cmd.Flags.Bool("json", false, "Print the report as JSON")
	cmd.Run = func(ctx context.Context, args []string) error {
		cfg, err := a.loadConfig(*configPath)
		if err != nil {
			return err
		}
		if err := requireDSN(cfg); err != nil {
			return err
		}
		logger.Init(cfg.Logging, cfg.Name)
		log := logger.GetGlobalLogger()

		shutdown, err := observability.Setup(ctx, cfg.Telemetry, cfg.Name, version.Get().Short())
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.WithError(err).Warn("telemetry shutdown failed")
			}
		}()
		metrics, err := observability.NewCredentialMetrics(observability.Meter(observability.InstrumentationName))
		if err != nil {
			return err
		}

		store, err := sqlstore.Open(ctx, cfg.Database, log.WithComponent("sqlstore"))
		if err != nil {
			return err
		}
		defer store.Close()

		if *flagLegacy {
			if err := store.EnsureFlagColumn(ctx); err != nil {
				return err
			}
		}

		auditor := audit.New(store, audit.WithLogger(log.WithComponent("audit")), audit.WithMetrics(metrics))
		report, runErr := auditor.Run(ctx, audit.Options{FlagLegacy: *flagLegacy})
		if report != nil {
			if err := a.printReport(report, *asJSON); err != nil {
				return err
			}
		}
		if runErr != nil && sqlstore.IsUndefinedColumn(runErr) {
			return fmt.Errorf("%w (run with -flag-legacy to add the column)", runErr)
		}
		return runErr
	}
	return cmd
}

func (a *app) resetRequestCommand() *Command {
	cmd := &Command{
		Name:        "reset-request",
		Description: "Issue a single-use password reset token for an email address",
		Flags:       flag.NewFlagSet("reset-request", flag.ContinueOnError),
	}
	configPath := cmd.Flags.String("config", "", "Path to config.yml")
	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("usage: %s reset-request <email>", serviceName)
		}
		svc, store, err := a.openLogin(ctx, *configPath)
		if err != nil {
			return err
		}
		defer store.Close()

		tok, err := svc.RequestReset(ctx, args[0])
		if err != nil {
			return err
		}
		if tok == nil {
			fmt.Fprintln(a.stdout, "no account matches; no token issued")
			return nil
		}
		fmt.Fprintf(a.stdout, "token: %s\nexpires: %s\n", tok.Token, tok.ExpiresAt.UTC().Format(time.RFC3339))
		return nil
	}
	return cmd
}

func (a *app) resetCommand() *Command {
	cmd := &Command{
		Name:        "reset",
		Description: "Consume a reset token and set the password read from stdin",
		Flags:       flag.NewFlagSet("reset", flag.ContinueOnError),
	}
	configPath := cmd.Flags.String("config", "", "Path to config.yml")
	cmd.Run = func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("usage: %s reset <token>", serviceName)
		}
		plaintext, err := a.readSecret()
		if err != nil {
			return err
		}
		svc, store, err := a.openLogin(ctx, *configPath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := svc.ResetPassword(ctx, args[0], plaintext); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "password updated")
		return nil
	}
	return cmd
}

// openLogin connects to the configured database, adds the columns the
// reset flow needs, and builds a login service on top of it.
func (a *app) openLogin(ctx context.Context, configPath string) (*login.Service, *sqlstore.Store, error) {
	cfg, err := a.loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := requireDSN(cfg); err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.Logging, cfg.Name)
	log := logger.GetGlobalLogger()

	store, err := sqlstore.Open(ctx, cfg.Database, log.WithComponent("sqlstore"))
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureFlagColumn(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if err := store.EnsureResetColumns(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	svc, err := login.NewService(store, cfg.Login, cfg.Password, login.WithLogger(log.WithComponent("login")))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return svc, store, nil
}

func requireDSN(cfg *config.AppConfig) error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required (set LINKVAULT_DATABASE_DSN)")
	}
	return nil
}

func (a *app) versionCommand() *Command {
	cmd := &Command{
		Name:        "version",
		Description: "Print build information",
		Flags:       flag.NewFlagSet("version", flag.ContinueOnError),
	}
	cmd.Run = func(ctx context.Context, args []string) error {
		fmt.Fprintf(a.stdout, "%s %s\n", serviceName, version.Get())
		return nil
	}
	return cmd
}

// loadConfig loads the app config with logging sent to stderr so command
// output stays clean on stdout.
func (a *app) loadConfig(path string) (*config.AppConfig, error) {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg, err := config.Load(serviceName, opts...)
	if err != nil {
		return nil, err
	}
	cfg.Logging.Output = "stderr"
	return cfg, nil
}

// readSecret reads the first line of stdin without its line ending.
func (a *app) readSecret() (string, error) {
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", password.ErrEmptyPassword
	}
	return line, nil
}

func (a *app) printReport(r *audit.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*audit.Report
			Recommendations []string `json:"recommendations"`
		}{r, r.Recommendations()})
	}

	fmt.Fprintf(a.stdout, "Audit %s (%s)\n", r.RunID, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(a.stdout, "  modern:   %d\n", r.Modern)
	fmt.Fprintf(a.stdout, "  legacy:   %d\n", r.Legacy)
	fmt.Fprintf(a.stdout, "  unknown:  %d\n", r.Unknown)
	fmt.Fprintf(a.stdout, "  flagged:  %d\n", r.Flagged)
	fmt.Fprintf(a.stdout, "  total:    %d\n", r.Total)
	if r.Complete() {
		fmt.Fprintln(a.stdout, "All stored passwords use bcrypt.")
		return nil
	}
	fmt.Fprintln(a.stdout, "\nRecommendations:")
	for i, rec := range r.Recommendations() {
		fmt.Fprintf(a.stdout, "  %d. %s\n", i+1, rec)
	}
	return nil
}

