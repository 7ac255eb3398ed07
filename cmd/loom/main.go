// Package main is the entry point for the loom command.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/loom/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type cliOptions struct {
	app      app.Options
	envFiles string
	runs     []string
	sel      string
	query    string
	list     bool
	commands bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	if opts.list {
		if err := listSnapshots(os.Stdout, application); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	if opts.commands {
		for _, name := range application.Manager().Commands() {
			fmt.Println(name)
		}
		return 0
	}

	if opts.sel != "" {
		if err := applySelection(application.Manager(), opts.sel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	for _, spec := range opts.runs {
		ok, err := runCommand(application.Manager(), spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "Warning: %s did not apply\n", spec)
		}
	}

	if opts.app.Watch {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		application.Logger().Info("watching config, press Ctrl-C to exit")
		<-signals
	}

	if err := printDocument(os.Stdout, application.Manager(), opts.query); err != nil {
		if errors.Is(err, errNoMatch) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() cliOptions {
	var opts cliOptions
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.app.ConfigPath, "config", "", "Path to a YAML or TOML configuration file")
	flag.StringVar(&opts.app.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.envFiles, "env", ".env", "Comma separated .env files")
	flag.StringVar(&opts.app.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.app.DocumentSource, "doc", "", "Document JSON file to load")
	flag.StringVar(&opts.app.DocumentID, "id", "", "Document id used for snapshots")
	flag.BoolVar(&opts.app.Watch, "watch", false, "Reload the config on change until interrupted")
	flag.Func("run", "Command to run as name or name:arg,arg (repeatable)", func(s string) error {
		opts.runs = append(opts.runs, s)
		return nil
	})
	flag.StringVar(&opts.sel, "select", "", "Selection as anchor:head before running commands")
	flag.StringVar(&opts.query, "query", "", "Print only the part of the document matching a gjson path")
	flag.BoolVar(&opts.list, "list", false, "List stored snapshots")
	flag.BoolVar(&opts.commands, "commands", false, "List available commands")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "loom - rich-text document engine\n\n")
		fmt.Fprintf(os.Stderr, "Usage: loom [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loom -doc note.json -select 1:6 -run toggleBold\n")
		fmt.Fprintf(os.Stderr, "  loom -c loom.yaml -id notes -query content.0\n")
		fmt.Fprintf(os.Stderr, "  loom -c loom.yaml -list\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("loom %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.app.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.app.LogLevel)
		os.Exit(1)
	}

	for _, f := range strings.Split(opts.envFiles, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.app.EnvFiles = append(opts.app.EnvFiles, f)
		}
	}
	return opts
}
