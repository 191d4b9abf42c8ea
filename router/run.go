package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/j0KZ/K2-controller-design-sub000/errors"
	"github.com/j0KZ/K2-controller-design-sub000/mapping"
)

const stopTimeout = 10 * time.Second

// Run starts every component and blocks until ctx is cancelled or the device
// listener fails terminally. Shutdown is orderly either way: dispatch drains,
// subscribers are disconnected, and counters, toggles, and fader positions
// are persisted.
func (r *Router) Run(ctx context.Context) error {
	if err := r.restoreState(ctx); err != nil {
		// Persistence is best effort on the read side; a fresh start beats
		// refusing to run
		r.logger.Warn("state restore failed, starting clean", "error", err)
	}

	if err := r.dispatcher.Initialize(); err != nil {
		return err
	}
	if err := r.bridge.Initialize(); err != nil {
		return err
	}

	if err := r.dispatcher.Start(ctx); err != nil {
		return err
	}
	if err := r.bridge.Start(ctx); err != nil {
		r.dispatcher.Stop(stopTimeout)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.listener.Run(gctx)
	})

	if r.cfg.MetricsAddr != "" {
		r.startMetricsServer(g, gctx)
	}

	runErr := g.Wait()

	r.bridge.Stop(stopTimeout)
	r.dispatcher.Stop(stopTimeout)
	r.gate.Stop()

	saveCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := r.saveState(saveCtx); err != nil {
		r.logger.Error("state save failed", "error", err)
	}

	if r.nc != nil {
		r.nc.Close()
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

// startMetricsServer serves the Prometheus endpoint under the errgroup so a
// bind failure surfaces like any other component failure.
func (r *Router) startMetricsServer(g *errgroup.Group, ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.metrics.Handler())
	r.metricsServer = &http.Server{
		Addr:              r.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		err := r.metricsServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return errors.WrapTransient(err, "Router", "startMetricsServer", "serve metrics")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return r.metricsServer.Shutdown(shutdownCtx)
	})
}

// Reload swaps in a new validated mapping table. In-flight events resolve
// against whichever table they loaded; no locking, no restart.
func (r *Router) Reload(table *mapping.Table) error {
	if err := table.Validate(r.cfg.MaxLayers); err != nil {
		return err
	}
	r.tables.Swap(table)
	r.logger.Info("mapping table reloaded")
	return nil
}

// ReloadFromFile re-reads the configured mapping file and swaps it in
func (r *Router) ReloadFromFile() error {
	if r.cfg.MappingFile == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no mapping_file configured", errors.ErrMissingConfig),
			"Router", "ReloadFromFile", "reload mapping")
	}
	table, err := mapping.LoadFile(r.cfg.MappingFile, r.cfg.MaxLayers)
	if err != nil {
		return err
	}
	return r.Reload(table)
}

// ForceReconnect closes and reopens the device port
func (r *Router) ForceReconnect() {
	r.listener.ForceReconnect()
}

// IsConnected reports whether the device poll loop is running
func (r *Router) IsConnected() bool {
	return r.listener.IsConnected()
}

// restoreState loads the persisted scalar map and splits it back into
// counters, toggles, and fader positions.
func (r *Router) restoreState(ctx context.Context) error {
	if r.stateStore == nil {
		return nil
	}
	flat, err := r.stateStore.Load(ctx)
	if err != nil {
		return err
	}
	if len(flat) == 0 {
		return nil
	}

	counters := make(map[string]int64)
	toggles := make(map[string]int64)
	positions := make(map[string]int64)
	for key, value := range flat {
		switch {
		case strings.HasPrefix(key, counterPrefix):
			counters[strings.TrimPrefix(key, counterPrefix)] = value
		case strings.HasPrefix(key, togglePrefix):
			toggles[strings.TrimPrefix(key, togglePrefix)] = value
		case strings.HasPrefix(key, positionPrefix):
			positions[strings.TrimPrefix(key, positionPrefix)] = value
		}
	}
	r.counters.Restore(counters)
	r.toggles.Restore(toggles)
	r.positions.Restore(positions)

	r.logger.Info("state restored",
		"counters", len(counters), "toggles", len(toggles), "positions", len(positions))
	return nil
}

// saveState flattens counters, toggles, and positions into one prefixed
// scalar map and writes it through the store.
func (r *Router) saveState(ctx context.Context) error {
	if r.stateStore == nil {
		return nil
	}

	flat := make(map[string]int64)
	for key, value := range r.counters.Snapshot() {
		flat[counterPrefix+key] = value
	}
	for key, value := range r.toggles.Snapshot() {
		flat[togglePrefix+key] = value
	}
	for key, value := range r.positions.SnapshotScalar() {
		flat[positionPrefix+key] = value
	}
	return r.stateStore.Save(ctx, flat)
}

// CounterValue exposes a counter for callers embedding the router
func (r *Router) CounterValue(key string) int64 {
	return r.counters.Get(key)
}

// ToggleValue exposes a toggle for callers embedding the router
func (r *Router) ToggleValue(key string) bool {
	return r.toggles.Get(key)
}

// PositionValue exposes the last resolved absolute position of a control
func (r *Router) PositionValue(channel, control int) (int, bool) {
	return r.positions.Get(controlKey(channel, control))
}
