package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/adapter"
	"github.com/brandon/mailbox-adapter/internal/commands"
	"github.com/brandon/mailbox-adapter/internal/config"
	"github.com/brandon/mailbox-adapter/internal/email"
	"github.com/brandon/mailbox-adapter/internal/journal"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	account     = flag.String("account", "", "Account name; may be omitted when only one account is configured")
	batch       = flag.Bool("batch", false, "Read JSON requests from stdin, one response per request")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: mailctl [flags] <command> [params-json | -]\n       mailctl [flags] -batch\n\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("mailctl version %s\n", version)
		os.Exit(0)
	}
	if !*batch && flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	os.Exit(run())
}

// run wires the accounts and executes the command line, returning the exit code
func run() int {
	// Logs go to stderr; stdout carries command output
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	opts := adapter.Options{ListLimit: cfg.ListLimit, Logger: logger}

	var j *journal.Journal
	if cfg.JournalPath != "" {
		j, err = journal.Open(cfg.JournalPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open journal")
		}
		defer j.Close()
		opts.Sequencer = j
	}

	manager, err := email.NewAccountManager(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create account manager")
		return 1
	}
	defer manager.Close()

	registry := commands.NewRegistry(commands.NewClients(manager, opts), j, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	if *batch {
		if err := commands.NewBatch(registry, logger).Run(ctx, os.Stdin, os.Stdout); err != nil {
			logger.WithError(err).Error("Batch failed")
			return 1
		}
		return 0
	}

	if err := runOne(registry, flag.Args(), os.Stdin, os.Stdout); err != nil {
		logger.WithError(err).Error("Command failed")
		return 1
	}
	return 0
}

// runOne executes a single command. The params argument is a JSON object, or
// "-" to read it from stdin.
func runOne(registry *commands.Registry, args []string, stdin io.Reader, stdout io.Writer) error {
	name := args[0]
	if name == "help" {
		for _, cmd := range registry.List() {
			fmt.Fprintf(stdout, "%-12s %s\n", cmd.Name(), cmd.Description())
		}
		return nil
	}

	params := map[string]interface{}{}
	if len(args) > 1 {
		var raw []byte
		if args[1] == "-" {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return fmt.Errorf("failed to read params: %w", err)
			}
			raw = b
		} else {
			raw = []byte(args[1])
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
	}
	if *account != "" {
		if _, ok := params["account"]; !ok {
			params["account"] = *account
		}
	}

	result, err := registry.Execute(name, params)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
