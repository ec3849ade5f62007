// Command ad-renamer moves Active Directory accounts to <initial>.<surname>
// login names, renaming each user's profile and home folders to match,
// one operator-confirmed user at a time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/afero"

	"github.com/isometry/ad-renamer/internal/config"
	"github.com/isometry/ad-renamer/internal/console"
	ldapclient "github.com/isometry/ad-renamer/internal/ldap"
	"github.com/isometry/ad-renamer/internal/rename"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// logLevelEnv selects the log level when -log-level is not given.
const logLevelEnv = "AD_RENAMER_LOG"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("ad-renamer", flag.ContinueOnError)
	settingsPath := flags.String("settings", config.DefaultSettingsFile, "path of the three-line settings file")
	dryRun := flags.Bool("dry-run", false, "preview and confirm without writing anything")
	noPause := flags.Bool("no-pause", false, "do not wait for a key press between users")
	duplicates := flags.String("duplicates", "", "duplicates log path (default from AD_DUPLICATES_LOG)")
	logLevel := flags.String("log-level", os.Getenv(logLevelEnv), "log level: trace, debug, info, warn or error")
	logFile := flags.String("log-file", "", "write logs to this file instead of stderr")
	showVersion := flags.Bool("version", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Println("ad-renamer", version)
		return 0
	}

	logger, closeLog, err := newLogger(*logLevel, *logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fs := afero.NewOsFs()
	con := console.New(os.Stdout, console.NewKeyReader(os.Stdin))

	cfg, err := config.Load(ctx, fs, *settingsPath, envconfig.OsLookuper(), logger)
	if err != nil {
		logger.Error("Configuration failed", "error", err)
		con.Error(fmt.Sprintf("Problem with %s file, shutting down...", filepath.Base(*settingsPath)))
		con.Error(err.Error())
		return 0
	}
	if *duplicates != "" {
		cfg.DuplicatesLog = *duplicates
	}

	client, err := ldapclient.NewClient(ctx, cfg.Connection, logger)
	if err != nil {
		con.Error(err.Error())
		return 1
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		con.Error("Cannot connect to the directory: " + err.Error())
		if ldapclient.IsAuthenticationError(err) {
			con.Warn("Check AD_USERNAME and AD_PASSWORD, or the Kerberos settings.")
		}
		return 1
	}

	if *dryRun {
		con.Warn("Dry run: confirmed changes will be shown but not written.")
	}

	opts := rename.Options{
		UPNSuffix:   cfg.UPNSuffix,
		ProfileRoot: cfg.Settings.ProfileRoot,
		HomeRoot:    cfg.Settings.HomeRoot,
		DryRun:      *dryRun,
		NoPause:     *noPause,
	}
	dir := ldapclient.NewDirectory(client, cfg.Connection.BaseDN, cfg.Connection.Timeout, logger)
	renamer := rename.NewRenamer(dir, fs, con, opts, logger)
	runner := rename.NewRunner(dir, renamer, rename.NewFileDuplicateLog(fs, cfg.DuplicatesLog), con, opts, logger)

	summary, err := runner.Run(ctx)
	con.Finale(summary)
	if err != nil {
		if errors.Is(err, rename.ErrAborted) || errors.Is(err, context.Canceled) {
			con.Warn("Aborted by operator.")
		} else {
			con.Error(err.Error())
		}
		logger.Error("Run stopped", "error", err)
		return 1
	}

	if !*noPause {
		waitForExit(ctx, con, logger)
	}
	if summary.HasFailures() {
		return 1
	}
	return 0
}

// waitForExit holds the console open until a key is pressed. Input that ends
// or an interrupt only closes the prompt.
func waitForExit(ctx context.Context, op rename.Operator, logger hclog.Logger) {
	if err := op.Pause(ctx, "Press any key to exit the application..."); err != nil {
		logger.Debug("Exit prompt ended without a key", "error", err)
	}
}

// newLogger returns the root logger. Logs never share stdout with the
// operator console.
func newLogger(level, path string) (hclog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	closeLog := func() {}

	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "ad-renamer",
		Level:  parseLevel(level),
		Output: out,
	}), closeLog, nil
}

// parseLevel maps a level name to an hclog level, defaulting to warn.
func parseLevel(level string) hclog.Level {
	if l := hclog.LevelFromString(level); l != hclog.NoLevel {
		return l
	}
	return hclog.Warn
}
