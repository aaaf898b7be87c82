// Command create-sweep registers a parameter sweep from a YAML config file.
//
//	create-sweep -c config.yml -m grid -n baseline
//	create-sweep -c config.yml redis -host redis -workers 4
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
	"strconv"
	"strings"
	"syscall"

	"github.com/banshee-data/sweep-logger/internal/config"
	"github.com/banshee-data/sweep-logger/internal/coord"
	"github.com/banshee-data/sweep-logger/internal/coord/redisstate"
	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/procexec"
	"github.com/banshee-data/sweep-logger/internal/registrar"
	"github.com/banshee-data/sweep-logger/internal/repro"
	"github.com/banshee-data/sweep-logger/internal/runlog/backend"
	"github.com/banshee-data/sweep-logger/internal/sweep"
	"github.com/banshee-data/sweep-logger/internal/timeutil"
	"github.com/banshee-data/sweep-logger/internal/version"
)

const toolName = "create-sweep"

type options struct {
	configPath    string
	logLevel      string
	method        sweep.SweepMethod
	name          string
	project       string
	remainingRuns *int
	backend       backend.Config
	showVersion   bool

	// redis is set by the redis subcommand.
	redis *redisOptions
}

type redisOptions struct {
	host    string
	port    int
	workers int
	prefix  string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{backend: backend.FromEnv()}
	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.configPath, "config", config.DefaultConfigPath, "Path to sweep config yaml file")
	fs.StringVar(&opts.configPath, "c", config.DefaultConfigPath, "Shorthand for -config")
	fs.StringVar(&opts.logLevel, "log-level", "INFO", "Log level: CRITICAL, FATAL, ERROR, WARN, WARNING, INFO, DEBUG, NOTSET")
	fs.TextVar(&opts.method, "method", sweep.Random, "grid to search every combination, random to sample")
	fs.TextVar(&opts.method, "m", sweep.Random, "Shorthand for -method")
	fs.StringVar(&opts.name, "name", "", "Name of sweep (logged in metadata)")
	fs.StringVar(&opts.name, "n", "", "Shorthand for -name")
	fs.StringVar(&opts.project, "project", "", "Name of project (logged in metadata)")
	fs.StringVar(&opts.project, "p", "", "Shorthand for -project")
	fs.StringVar(&opts.backend.Endpoint, "graphql-endpoint", opts.backend.Endpoint, "Hasura GraphQL endpoint (default $"+backend.EndpointEnv+")")
	fs.StringVar(&opts.backend.Endpoint, "g", opts.backend.Endpoint, "Shorthand for -graphql-endpoint")
	fs.StringVar(&opts.backend.AdminSecret, "admin-secret", opts.backend.AdminSecret, "Hasura admin secret (default $"+backend.AdminSecretEnv+")")
	remaining := fs.String("remaining-runs", "", "Limit on the number of runs; empty means unlimited (grid sweeps default to the grid size)")
	fs.StringVar(remaining, "r", "", "Shorthand for -remaining-runs")
	fs.StringVar(&opts.backend.Kind, "logger", backend.Hasura, "Run logger backend: hasura or sqlite")
	fs.StringVar(&opts.backend.DBPath, "db", backend.DefaultDBPath, "SQLite database path for -logger sqlite")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] [redis [-host h] [-port p] [-workers n]]\n\n", toolName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if opts.remainingRuns, err = parseRemainingRuns(*remaining); err != nil {
		return nil, err
	}
	if _, err := monitoring.ParseLevel(opts.logLevel); err != nil {
		return nil, err
	}

	switch fs.Arg(0) {
	case "":
	case "redis":
		if opts.redis, err = parseRedisFlags(fs.Args()[1:], output); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown subcommand %q", fs.Arg(0))
	}
	return opts, nil
}

func parseRedisFlags(args []string, output io.Writer) (*redisOptions, error) {
	r := &redisOptions{}
	fs := flag.NewFlagSet(toolName+" redis", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&r.host, "host", redisstate.DefaultHost, "Redis host")
	fs.IntVar(&r.port, "port", redisstate.DefaultPort, "Redis port")
	fs.IntVar(&r.workers, "workers", 0, "Initialize the rank counter for this many workers")
	fs.StringVar(&r.prefix, "key-prefix", "", "Prefix for coordination keys")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if r.workers < 0 {
		return nil, fmt.Errorf("-workers must not be negative, got %d", r.workers)
	}
	return r, nil
}

// parseRemainingRuns treats an empty string as no limit.
func parseRemainingRuns(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid -remaining-runs %q: %w", s, err)
	}
	return &n, nil
}

func run(ctx context.Context, opts *options) (int64, error) {
	logger, err := backend.Open(opts.backend)
	if err != nil {
		return 0, err
	}
	defer logger.Close()

	reg := registrar.Options{
		ConfigPath:    opts.configPath,
		Method:        opts.method,
		Name:          opts.name,
		Project:       opts.project,
		RemainingRuns: opts.remainingRuns,
		Logger:        logger,
		Repro: repro.Collector{
			Commands: procexec.NewRealCommandBuilder(),
			Clock:    timeutil.RealClock{},
			Args:     os.Args,
		},
	}
	if opts.redis != nil {
		state, err := redisstate.Dial(ctx, opts.redis.host, opts.redis.port)
		if err != nil {
			return 0, err
		}
		defer state.Close()
		reg.Coordinator = coord.NewCoordinator(state, logger)
		reg.Coordinator.Prefix = opts.redis.prefix
		reg.Workers = opts.redis.workers
	}
	return registrar.Register(ctx, reg)
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

	id, err := run(ctx, opts)
	if err != nil {
		log.Fatalf("%s: %v", toolName, err)
	}
	fmt.Println(id)
}
