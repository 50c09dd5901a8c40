// troughctl drives a measurement session against a trough server: it
// opens the barriers to full extent, then runs a constant-area series
// over the configured target areas while a background poller records
// every sample to the data file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/troughctl/internal/datafile"
	"github.com/danmuck/troughctl/internal/logging"
	"github.com/danmuck/troughctl/internal/monitor"
	"github.com/danmuck/troughctl/internal/poll"
	"github.com/danmuck/troughctl/internal/trough"
)

func main() {
	logging.ConfigureRuntime()

	cfg := defaultRunConfig()
	if len(os.Args) > 1 {
		loaded, err := loadRunConfig(os.Args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("troughctl config")
		}
		cfg = loaded
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("troughctl")
	}
}

func run(cfg runConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := trough.Dial(cfg.Addr)
	if err != nil {
		return err
	}
	defer client.Close()

	rec, err := datafile.Create(cfg.DataFile)
	if err != nil {
		return err
	}
	defer rec.Close()

	poller := poll.Start(client, poll.Config{
		Interval: cfg.PollInterval,
		OnData:   rec.Record,
		OnError: func(msg string, partial []trough.Measurement) {
			log.Error().Int("partial", len(partial)).Msg(msg)
		},
	})
	defer poller.Stop()

	if cfg.MonitorAddr != "" {
		mon := monitor.New(rec, poller, cfg.Addr)
		go func() {
			if err := mon.Run(cfg.MonitorAddr); err != nil {
				log.Error().Err(err).Str("addr", cfg.MonitorAddr).Msg("monitor stopped")
			}
		}()
	}

	if _, err := client.Ctrl("verbosity", cfg.Verbosity); err != nil {
		return err
	}

	ident, err := client.Call(trough.MethodDeviceIdentification)
	if err != nil {
		return err
	}
	log.Info().Str("device", ident.String()).Msg("device identification")

	if _, err := client.Call("NewMeasureMode", int(trough.ModeIdle)); err != nil {
		return err
	}

	// Make sure data is actually flowing before moving anything.
	if err := waitForData(ctx, rec); err != nil {
		return err
	}

	maxArea, err := openBarriers(ctx, client, rec)
	if err != nil {
		return err
	}

	return constantAreaSeries(ctx, client, rec, cfg, maxArea)
}

// waitForData blocks until the poller has delivered at least one sample.
func waitForData(ctx context.Context, rec *datafile.Recorder) error {
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, ok := rec.Latest(); ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("troughctl: no data received from the trough")
		}
		if err := sleepCtx(ctx, time.Second); err != nil {
			return err
		}
	}
}

// openBarriers separates the barriers at full speed until they stop at
// maximum extent, and returns the area there.
func openBarriers(ctx context.Context, client *trough.Client, rec *datafile.Recorder) (float64, error) {
	log.Info().Msg("opening barriers")

	maxSpeed, err := callValue(client, "GetMaxBarrierSpeed")
	if err != nil {
		return 0, err
	}
	if _, err := client.Call("SetBarrierSpeed", maxSpeed); err != nil {
		return 0, err
	}
	if _, err := client.Call("StepRelax"); err != nil {
		return 0, err
	}

	for {
		// Cached barrier status lags by up to one poll interval.
		if err := sleepCtx(ctx, 2*time.Second); err != nil {
			return 0, err
		}
		m, ok := rec.Latest()
		if !ok {
			continue
		}
		if m.SteppingStatus() == trough.StpStop {
			log.Info().Float64("area", m.Area()).Msg("barriers at maximum extent")
			return m.Area(), nil
		}
	}
}

// constantAreaSeries visits each configured target area, gathering
// measurement data for the hold period once the target is reached.
func constantAreaSeries(ctx context.Context, client *trough.Client, rec *datafile.Recorder, cfg runConfig, maxArea float64) error {
	log.Info().Floats64("areas_mm2", cfg.TargetAreas).Msg("constant area series")
	rec.Annotate("Test Constant Area measurement mode")

	if _, err := client.Call("SetStoreInterval", cfg.StoreInterval); err != nil {
		return err
	}
	if _, err := client.Call("NewMeasureMode", int(trough.ModeConstantArea)); err != nil {
		return err
	}

	// The target-area call wants Ang^2-per-chain, so scale from mm^2.
	maxPerChains, err := callValue(client, "MaxAreaPerChains")
	if err != nil {
		return err
	}
	scale := maxPerChains.Real() / maxArea

	for _, area := range cfg.TargetAreas {
		if _, err := client.Call("SetTargetAreaPerChains", area*scale); err != nil {
			return err
		}
		rec.Annotate("Moving to target area %.0f mm^2", area)
		rec.SetTimeOffset(float64(time.Now().Unix()))
		if _, err := client.Call("StartMeasure"); err != nil {
			return err
		}

		if err := waitForTarget(ctx, rec); err != nil {
			return err
		}

		// Timestamps stopped advancing when the target was reached, so
		// issue another StartMeasure before the hold period.
		rec.Annotate("Holding")
		rec.SetTimeOffset(float64(time.Now().Unix()))
		if _, err := client.Call("StartMeasure"); err != nil {
			return err
		}
		if err := sleepCtx(ctx, cfg.Hold); err != nil {
			return err
		}
		if _, err := client.Call("StopMeasure"); err != nil {
			return err
		}
	}

	rec.Annotate("Done")
	log.Info().Msg("constant area series done")
	return nil
}

func waitForTarget(ctx context.Context, rec *datafile.Recorder) error {
	for {
		if err := sleepCtx(ctx, 2*time.Second); err != nil {
			return err
		}
		m, ok := rec.Latest()
		if !ok {
			continue
		}
		status := m.DeviceStatus()
		log.Info().
			Float64("area", m.Area()).
			Stringer("device_status", status).
			Msg("moving to target")
		if status == trough.DstTargetReached {
			return nil
		}
	}
}

// callValue invokes a method expected to produce exactly one value.
func callValue(client *trough.Client, method string, args ...any) (trough.Value, error) {
	fields, err := client.Call(method, args...)
	if err != nil {
		return trough.Value{}, err
	}
	if len(fields) != 1 {
		return trough.Value{}, fmt.Errorf("troughctl: %s returned %d fields (%s)", method, len(fields), fields)
	}
	return fields[0], nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
