// Command sweep-params creates a run and prints its resolved parameters as
// JSON. A command launched by execute-sweep can call it with the sweep id it
// was given.
//
//	sweep-params -sweep-id 42 -config fixed.yml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"

	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/runlog/backend"
	"github.com/banshee-data/sweep-logger/internal/trial"
	"github.com/banshee-data/sweep-logger/internal/version"
)

const toolName = "sweep-params"

type options struct {
	sweepID     int64
	loadID      int64
	configPath  string
	name        string
	seed        uint64
	backend     backend.Config
	logLevel    string
	showVersion bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{backend: backend.FromEnv()}
	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Int64Var(&opts.sweepID, "sweep-id", 0, "Sweep to draw parameters from; 0 creates a standalone run")
	fs.Int64Var(&opts.loadID, "load-id", 0, "Copy the parameters of this earlier run")
	fs.StringVar(&opts.configPath, "config", "", "YAML file of fixed parameters applied last")
	fs.StringVar(&opts.name, "name", "", "Run name (logged in metadata)")
	fs.Uint64Var(&opts.seed, "seed", 0, "Seed for random sweeps; 0 draws a fresh seed")
	fs.StringVar(&opts.backend.Endpoint, "graphql-endpoint", opts.backend.Endpoint, "Hasura GraphQL endpoint (default $"+backend.EndpointEnv+")")
	fs.StringVar(&opts.backend.AdminSecret, "admin-secret", opts.backend.AdminSecret, "Hasura admin secret (default $"+backend.AdminSecretEnv+")")
	fs.StringVar(&opts.backend.Kind, "logger", backend.Hasura, "Run logger backend: hasura or sqlite")
	fs.StringVar(&opts.backend.DBPath, "db", backend.DefaultDBPath, "SQLite database path for -logger sqlite")
	fs.StringVar(&opts.logLevel, "log-level", "WARNING", "Log level: CRITICAL, FATAL, ERROR, WARN, WARNING, INFO, DEBUG, NOTSET")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.sweepID < 0 || opts.loadID < 0 {
		return nil, errors.New("-sweep-id and -load-id must not be negative")
	}
	if _, err := monitoring.ParseLevel(opts.logLevel); err != nil {
		return nil, err
	}
	return opts, nil
}

type output struct {
	RunID      int64          `json:"run_id"`
	Parameters map[string]any `json:"parameters"`
}

func run(ctx context.Context, opts *options, w io.Writer) error {
	logger, err := backend.Open(opts.backend)
	if err != nil {
		return err
	}
	defer logger.Close()

	to := trial.Options{
		CreateRun:  true,
		ConfigPath: opts.configPath,
	}
	if opts.name != "" {
		to.Params = map[string]any{"name": opts.name}
	}
	if opts.sweepID > 0 {
		to.SweepID = &opts.sweepID
	}
	if opts.loadID > 0 {
		to.LoadID = &opts.loadID
	}
	if opts.seed != 0 {
		to.Rand = rand.New(rand.NewPCG(opts.seed, opts.seed))
	}

	t, err := trial.Initialize(ctx, logger, to)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output{RunID: t.Run.ID, Parameters: t.Params})
}

func main() {
	log.SetFlags(0)
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println(version.String(toolName))
		return
	}
	if err := monitoring.SetLevel(opts.logLevel); err != nil {
		log.Fatalf("%v", err)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		log.Fatalf("%s: %v", toolName, err)
	}
}
