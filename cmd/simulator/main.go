package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/unit-simulator/catalog"
	"github.com/signalsfoundry/unit-simulator/core"
	"github.com/signalsfoundry/unit-simulator/internal/config"
	"github.com/signalsfoundry/unit-simulator/internal/logging"
	"github.com/signalsfoundry/unit-simulator/internal/observability"
	"github.com/signalsfoundry/unit-simulator/internal/trackexport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one simulation and returns the process exit code. Simulation
// lines go to stdout; logs go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a JSON simulation config (defaults are used when empty)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	settings.Log.Output = stderr
	log := logging.New(settings.Log)
	ctx, runID := logging.EnsureRunID(ctx)
	ctx = logging.ContextWithLogger(ctx, log)

	shutdown, err := observability.InitTracing(ctx, settings.Tracing, log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.Err(err))
		return 1
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	if err := simulate(ctx, settings, stdout, log); err != nil {
		log.Error(ctx, "simulation failed", logging.String("run_id", runID), logging.Err(err))
		return 1
	}
	return 0
}

func simulate(ctx context.Context, s *config.Settings, stdout io.Writer, log logging.Logger) error {
	cat, err := catalog.Load(s.CatalogPath)
	if err != nil {
		return err
	}
	log.Debug(ctx, "catalog loaded",
		logging.String("path", s.CatalogPath),
		logging.Int("categories", len(cat.Categories())))

	seed := s.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	units, err := core.BuildUnits(s.Sim, cat, rng)
	if err != nil {
		return fmt.Errorf("build units: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewSimCollector(reg)
	if err != nil {
		return err
	}

	engine, err := core.NewSimulationEngine(s.Sim, units,
		core.WithOutput(stdout),
		core.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	var tracks *trackexport.Recorder
	if s.TracksPath != "" {
		tracks = trackexport.NewRecorder()
		engine.RegisterTickListener(tracks.Record)
	}

	runErr := engine.Run(logging.ContextWithLogger(ctx, log.With(logging.String("component", "engine"))))

	// Partial runs still get their metrics and tracks written.
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if s.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(s.MetricsTextfile); err != nil {
			errs = append(errs, err)
		} else {
			log.Info(ctx, "metrics written", logging.String("path", s.MetricsTextfile))
		}
	}
	if tracks != nil {
		if err := tracks.Write(s.TracksPath, s.TrackCRS); err != nil {
			errs = append(errs, err)
		} else {
			log.Info(ctx, "tracks written", logging.String("path", s.TracksPath), logging.String("crs", s.TrackCRS))
		}
	}
	return errors.Join(errs...)
}
