package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages the background goroutines: resolution polling and
// price syncing.
type Orchestrator struct {
	poller            *ResolutionPoller
	priceSync         *PriceSync
	resolveInterval   time.Duration
	priceSyncInterval time.Duration
	logger            *slog.Logger
}

// NewOrchestrator creates a new Orchestrator that coordinates the background
// loops.
func NewOrchestrator(
	poller *ResolutionPoller,
	priceSync *PriceSync,
	resolveInterval time.Duration,
	priceSyncInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		poller:            poller,
		priceSync:         priceSync,
		resolveInterval:   resolveInterval,
		priceSyncInterval: priceSyncInterval,
		logger:            logger,
	}
}

// Run starts both loops as concurrent goroutines using an errgroup. Each
// goroutine respects ctx cancellation. If any goroutine returns a non-context
// error, the errgroup cancels the shared context and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("resolve_interval", o.resolveInterval),
		slog.Duration("price_sync_interval", o.priceSyncInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.logger.Info("starting resolution poller loop")
		err := o.poller.RunLoop(ctx, o.resolveInterval)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("resolution poller: %w", err)
	})

	g.Go(func() error {
		o.logger.Info("starting price sync loop")
		err := o.priceSync.RunLoop(ctx, o.priceSyncInterval)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("price sync: %w", err)
	})

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
