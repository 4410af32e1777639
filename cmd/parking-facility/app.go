package main

import (
	"context"
	"errors"
	"fmt"

	"parking-facility/internal/clock"
	"parking-facility/internal/config"
	"parking-facility/internal/facility"
	"parking-facility/internal/logging"
	"parking-facility/internal/parking"
	"parking-facility/internal/recorder"
	"parking-facility/internal/store/memory"
	"parking-facility/internal/store/postgres"
	"parking-facility/internal/store/postgres/migrations"
	"parking-facility/internal/telemetry"
)

type spotStore interface {
	parking.SpotRegistry
	parking.SpotProvisioner
}

type vehicleStore interface {
	parking.VehicleDirectory
	parking.VehicleRegistrar
}

// transactionRecorder is a billing sink with a worker lifecycle.
type transactionRecorder interface {
	parking.BillingSink
	Stop(ctx context.Context) error
}

type app struct {
	engine       *parking.InstrumentedCoordinator
	vehicles     vehicleStore
	transactions recorder.Store
	closers      []func(context.Context) error
}

type stores struct {
	spots        spotStore
	sessions     parking.SessionLedger
	vehicles     vehicleStore
	transactions recorder.Store
	recorder     transactionRecorder
}

func newApp(ctx context.Context, cfg *config.Config, tp *telemetry.Provider) (*app, error) {
	granularity, err := parking.ParseGranularity(cfg.Billing.Granularity)
	if err != nil {
		return nil, err
	}
	policy, err := parking.ParseRatePolicy(cfg.Billing.RatePolicy)
	if err != nil {
		return nil, err
	}

	a := &app{}
	clk := clock.NewSystem()

	var s stores
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		s, err = a.postgresStores(ctx, cfg)
	default:
		s, err = a.memoryStores(ctx, cfg, clk)
	}
	if err != nil {
		_ = a.close(context.Background())
		return nil, err
	}

	if err := provision(ctx, cfg, s); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}

	coordinator := parking.NewCoordinator(s.spots, s.sessions, s.vehicles,
		parking.WithClock(clk),
		parking.WithCalculator(parking.NewCalculator(granularity)),
		parking.WithRatePolicy(policy),
		parking.WithSink(s.recorder),
	)
	engine, err := parking.NewInstrumentedCoordinator(coordinator, tp.Tracer(), tp.Meter())
	if err != nil {
		_ = a.close(context.Background())
		return nil, err
	}

	a.engine = engine
	a.vehicles = s.vehicles
	a.transactions = s.transactions
	return a, nil
}

func (a *app) memoryStores(ctx context.Context, cfg *config.Config, clk clock.Clock) (stores, error) {
	txs := memory.NewTransactionStore()
	rec, err := recorder.NewAsyncRecorder(txs, cfg.Recorder.PaymentMethod, cfg.Recorder.BufferSize, cfg.Recorder.Workers)
	if err != nil {
		return stores{}, err
	}
	rec.Start(ctx)
	a.closers = append(a.closers, rec.Stop)

	logging.Info(ctx, "using in-memory stores")
	return stores{
		spots:        memory.NewSpotRegistry(clk),
		sessions:     memory.NewSessionLedger(),
		vehicles:     memory.NewVehicleDirectory(clk),
		transactions: txs,
		recorder:     rec,
	}, nil
}

func (a *app) postgresStores(ctx context.Context, cfg *config.Config) (stores, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, func(context.Context) error {
		pool.Close()
		return nil
	})

	if err := migrations.Apply(ctx, pool); err != nil {
		return stores{}, fmt.Errorf("apply migrations: %w", err)
	}
	if err := recorder.Migrate(ctx, pool); err != nil {
		return stores{}, fmt.Errorf("river migrations: %w", err)
	}

	txs := postgres.NewTransactionStore(pool)
	rec, err := recorder.NewRiverRecorder(pool, txs, cfg.Recorder.PaymentMethod, cfg.Recorder.Workers)
	if err != nil {
		return stores{}, err
	}
	if err := rec.Start(ctx); err != nil {
		return stores{}, fmt.Errorf("start river: %w", err)
	}
	// Registered after the pool so it stops first.
	a.closers = append(a.closers, rec.Stop)

	logging.Info(ctx, "using postgres stores")
	return stores{
		spots:        postgres.NewSpotRegistry(pool),
		sessions:     postgres.NewSessionLedger(pool),
		vehicles:     postgres.NewVehicleDirectory(pool),
		transactions: txs,
		recorder:     rec,
	}, nil
}

func provision(ctx context.Context, cfg *config.Config, s stores) error {
	var layout facility.Layout
	switch {
	case cfg.SeedFile != "":
		l, err := facility.LoadLayout(cfg.SeedFile)
		if err != nil {
			return err
		}
		layout = l
	case cfg.DefaultLayout:
		layout = facility.DefaultLayout()
	default:
		return nil
	}

	_, err := facility.Provision(ctx, s.spots, s.vehicles, layout)
	return err
}

// close runs closers in reverse registration order.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
