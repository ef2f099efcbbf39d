package object

import (
	"context"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/solidstack/podspace/pkg/observability"
)

// RemnantSweeper periodically scans a Store for orphaned sidecars left
// behind by a creator that crashed mid-write (the synchronous
// purge-remnants-on-error path handles the common case; this is a
// defence-in-depth sweep for process-crash remnants). Grounded on
// robfig/cron/v3 usage already present in the teacher's dependency set.
type RemnantSweeper struct {
	store  Store
	cron   *cron.Cron
	onHit  func(path string)
	logger *observability.Logger
}

// NewRemnantSweeper builds a sweeper over store. onHit, if non-nil, is
// invoked for every orphaned sidecar found (tests/observers can use this
// instead of performing deletes). logger may be nil; if set, a panic during
// a scheduled sweep tick is recovered and logged rather than crashing the
// cron goroutine (the synchronous purge-remnants-on-error path already
// covers the common case, so this defence-in-depth sweep must not itself
// become a source of process instability).
func NewRemnantSweeper(store Store, logger *observability.Logger, onHit func(path string)) *RemnantSweeper {
	return &RemnantSweeper{store: store, cron: cron.New(), onHit: onHit, logger: logger}
}

// Start schedules the sweep on the given cron spec (e.g. "@every 1h") and
// begins running it in the background.
func (g *RemnantSweeper) Start(spec string) error {
	_, err := g.cron.AddFunc(spec, func() { g.sweep(context.Background()) })
	if err != nil {
		return err
	}
	g.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (g *RemnantSweeper) Stop() {
	<-g.cron.Stop().Done()
}

// sweep lists the objects directly under the root namespace and reports
// sidecars whose base object no longer exists, which indicates an
// interrupted creator left a sidecar behind without its primary
// representation. Nested namespaces are not descended into.
func (g *RemnantSweeper) sweep(ctx context.Context) {
	if g.logger != nil {
		defer observability.RecoverPanic(g.logger, "remnant sweeper tick")
	}
	entries, err := g.store.List(ctx, "/")
	if err != nil {
		return
	}
	for _, e := range entries {
		if !strings.Contains(e.Path, SidecarDelim) {
			continue
		}
		base := e.Path[:strings.Index(e.Path, SidecarDelim)]
		if _, err := g.store.Stat(ctx, base); err == ErrNotFound {
			if g.onHit != nil {
				g.onHit(e.Path)
			}
		}
	}
}
