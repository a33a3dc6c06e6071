package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/cautela/internal/config"
	"github.com/erazemk/cautela/internal/db"
	"github.com/erazemk/cautela/internal/notify"
	"github.com/erazemk/cautela/internal/session"
	"github.com/erazemk/cautela/internal/store"
)

// Email transports.
const (
	transportSheet    = "sheet"
	transportSendGrid = "sendgrid"
	transportLog      = "log"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	DBPath      string
	LogPath     string
	UnitsPath   string
	Verbose     bool
	RedisAddr   string
	EmailDomain string
	Transport   string
	SendGridKey string
	FromEmail   string
	FromName    string

	closeLog func()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cautela",
		Short: "Equipment custody tracking for operational support sections",
		Long: `Cautela records who took which piece of equipment, when it is due
back and who received it, and keeps every unit's table in sync with its
shared spreadsheet.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.SendGridKey == "" {
				opts.SendGridKey = os.Getenv("CAUTELA_SENDGRID_KEY")
			}
			switch opts.Transport {
			case transportSheet, transportLog:
			case transportSendGrid:
				if opts.SendGridKey == "" {
					return fmt.Errorf("--email-transport=sendgrid needs --sendgrid-key or CAUTELA_SENDGRID_KEY")
				}
			default:
				return fmt.Errorf("invalid email transport %q: must be sheet, sendgrid or log", opts.Transport)
			}

			closeLog, err := setupLogger(opts.LogPath, opts.Verbose)
			if err != nil {
				return err
			}
			opts.closeLog = closeLog
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.DBPath, "db", "d", "cautela.sqlite3", "SQLite database path")
	f.StringVarP(&opts.LogPath, "log", "l", "", "log file path (default: stdout/stderr only)")
	f.StringVar(&opts.UnitsPath, "units", "", "YAML unit roster (default: built-in SEDE and PEMAD)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	f.StringVar(&opts.RedisAddr, "redis-addr", "", "keep the local cache in Redis instead of SQLite")
	f.StringVar(&opts.EmailDomain, "email-domain", "", "mail domain notification addresses are built on")
	f.StringVar(&opts.Transport, "email-transport", transportSheet, "notification transport (sheet|sendgrid|log)")
	f.StringVar(&opts.SendGridKey, "sendgrid-key", "", "SendGrid API key (env CAUTELA_SENDGRID_KEY)")
	f.StringVar(&opts.FromEmail, "from-email", "", "sender address for SendGrid")
	f.StringVar(&opts.FromName, "from-name", "Cautela SAO", "sender name for SendGrid")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newOverdueCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	return cmd
}

// app is what every command works with.
type app struct {
	DB    *sql.DB
	Units *session.Manager

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openApp opens the database, creating it on first run, and builds every
// unit from the roster.
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	_, statErr := os.Stat(opts.DBPath)
	created := os.IsNotExist(statErr)

	database, err := db.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a := &app{DB: database, closers: []func(){func() { database.Close() }}}

	if err := db.EnsureSchema(database); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	pin, err := store.EnsureAdminPIN(ctx, database)
	if err != nil {
		a.Close()
		return nil, err
	}
	if pin != "" {
		printInitResult(opts.DBPath, created, pin)
	}
	slog.Info("database ready", "path", opts.DBPath)

	roster := config.DefaultUnits()
	if opts.UnitsPath != "" {
		if roster, err = config.LoadUnits(opts.UnitsPath); err != nil {
			a.Close()
			return nil, err
		}
	}

	var cache session.Cache = store.NewLocalCache(database)
	if opts.RedisAddr != "" {
		rc, err := store.NewRedisCache(ctx, opts.RedisAddr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { rc.Close() })
		cache = rc
		slog.Info("using redis cache", "addr", opts.RedisAddr)
	}

	units, err := session.NewManager(ctx, roster, session.Deps{
		Cache:       cache,
		NewSender:   newSenderFunc(opts),
		EmailDomain: opts.EmailDomain,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Units = units
	a.closers = append(a.closers, units.Close)
	return a, nil
}

func newSenderFunc(opts *rootOptions) func(notify.EmailRelay) notify.Sender {
	switch opts.Transport {
	case transportSendGrid:
		sg := notify.NewSendGridSender(opts.SendGridKey, opts.FromName, opts.FromEmail, false)
		return func(notify.EmailRelay) notify.Sender { return sg }
	case transportLog:
		return func(notify.EmailRelay) notify.Sender { return notify.LogSender{} }
	}
	return nil
}

// printInitResult prints the generated admin PIN once.
func printInitResult(dbPath string, created bool, pin string) {
	if created {
		fmt.Printf("Database created: %s\n", dbPath)
		fmt.Println("Schema initialized.")
		fmt.Println()
	}
	fmt.Println("Admin PIN created:")
	fmt.Printf("  PIN: %s\n", pin)
	fmt.Println()
	fmt.Println("Save this PIN, it cannot be recovered.")
	fmt.Println("It is required to change a unit's spreadsheet endpoint.")
	fmt.Println()
}
