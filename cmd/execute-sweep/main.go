// Command execute-sweep claims a device rank and launches runs of a sweep
// until its run ceiling is reached.
//
//	execute-sweep -command "python train.py" -graphql-endpoint http://hasura:8080/v1/graphql
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/sweep-logger/internal/coord"
	"github.com/banshee-data/sweep-logger/internal/coord/redisstate"
	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/runlog/backend"
	"github.com/banshee-data/sweep-logger/internal/version"
	"github.com/banshee-data/sweep-logger/internal/worker"
)

const toolName = "execute-sweep"

type options struct {
	command      string
	backend      backend.Config
	redisHost    string
	redisPort    int
	keyPrefix    string
	pollInterval time.Duration
	backoff      time.Duration
	deviceEnv    string
	workers      int
	logLevel     string
	showVersion  bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{backend: backend.FromEnv()}
	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.command, "command", "", "Command to execute; the sweep id is appended as its last argument (required)")
	fs.StringVar(&opts.backend.Endpoint, "graphql-endpoint", opts.backend.Endpoint, "Hasura GraphQL endpoint (default $"+backend.EndpointEnv+")")
	fs.StringVar(&opts.backend.AdminSecret, "admin-secret", opts.backend.AdminSecret, "Hasura admin secret (default $"+backend.AdminSecretEnv+")")
	fs.StringVar(&opts.backend.Kind, "logger", backend.Hasura, "Run logger backend: hasura or sqlite")
	fs.StringVar(&opts.backend.DBPath, "db", backend.DefaultDBPath, "SQLite database path for -logger sqlite")
	fs.StringVar(&opts.redisHost, "redis-host", redisstate.DefaultHost, "Redis host")
	fs.IntVar(&opts.redisPort, "redis-port", redisstate.DefaultPort, "Redis port")
	fs.StringVar(&opts.keyPrefix, "key-prefix", "", "Prefix for coordination keys")
	fs.DurationVar(&opts.pollInterval, "poll-interval", coord.DefaultPollInterval, "Interval between rank and sweep id polls")
	fs.DurationVar(&opts.backoff, "backoff", worker.DefaultBackoff, "Pause between runs")
	fs.StringVar(&opts.deviceEnv, "device-env", worker.DefaultDeviceEnv, "Environment variable that receives the rank")
	fs.IntVar(&opts.workers, "workers", 1, "Number of devices to drive from this process, each with its own rank")
	fs.StringVar(&opts.logLevel, "log-level", "INFO", "Log level: CRITICAL, FATAL, ERROR, WARN, WARNING, INFO, DEBUG, NOTSET")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.showVersion {
		return opts, nil
	}
	if opts.command == "" {
		return nil, errors.New("-command is required")
	}
	if opts.backend.Kind == backend.Hasura && opts.backend.Endpoint == "" {
		return nil, errors.New("-graphql-endpoint is required")
	}
	if opts.workers < 1 {
		return nil, fmt.Errorf("-workers must be at least 1, got %d", opts.workers)
	}
	if opts.pollInterval <= 0 || opts.backoff < 0 {
		return nil, errors.New("-poll-interval must be positive and -backoff non-negative")
	}
	if _, err := monitoring.ParseLevel(opts.logLevel); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(ctx context.Context, opts *options, state coord.SharedState) ([]worker.Result, error) {
	logger, err := backend.Open(opts.backend)
	if err != nil {
		return nil, err
	}
	defer logger.Close()

	c := coord.NewCoordinator(state, logger)
	c.PollInterval = opts.pollInterval
	c.Prefix = opts.keyPrefix

	return worker.ExecuteN(ctx, opts.workers, worker.Options{
		Command:     opts.command,
		Coordinator: c,
		Backoff:     opts.backoff,
		DeviceEnv:   opts.deviceEnv,
	})
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := redisstate.Dial(ctx, opts.redisHost, opts.redisPort)
	if err != nil {
		log.Fatalf("%s: %v", toolName, err)
	}
	defer state.Close()

	results, err := run(ctx, opts, state)
	if err != nil {
		log.Fatalf("%s: %v", toolName, err)
	}
	for _, res := range results {
		monitoring.Logf("worker %s finished sweep %d: %d runs, %d failed", res.WorkerID, res.SweepID, res.Runs, res.Failed)
	}
}
