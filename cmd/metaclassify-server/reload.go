package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aria-lang/metaclassify-go/internal/config"
	"github.com/aria-lang/metaclassify-go/internal/index"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

// indexOrigin knows where the server's index comes from and where it is
// persisted.
type indexOrigin struct {
	cfg    config.Config
	engine *metaclassify.Engine
}

// loadInitial installs the first index: the SQLite store if it holds one,
// then the JSON index file, then a fresh build from the reference
// directory. A server with none of these starts without an index.
func (o *indexOrigin) loadInitial(ctx context.Context) error {
	if o.cfg.DBPath != "" {
		idx, err := o.loadStore(ctx)
		switch {
		case err == nil:
			log.Printf("Loaded index from %s (%s k-mers)", o.cfg.DBPath, humanize.Comma(int64(idx.Len())))
			return o.engine.UseIndex(idx)
		case !errors.Is(err, index.ErrNoReferenceData):
			return err
		}
	}

	if o.cfg.IndexPath != "" {
		idx, err := index.LoadFile(o.cfg.IndexPath)
		switch {
		case err == nil:
			log.Printf("Loaded index from %s (%s k-mers)", o.cfg.IndexPath, humanize.Comma(int64(idx.Len())))
			return o.engine.UseIndex(idx)
		case !errors.Is(err, os.ErrNotExist):
			return err
		}
	}

	if o.cfg.ReferenceDir != "" {
		_, err := o.rebuild(ctx)
		return err
	}

	log.Println("No index source configured; POST /api/index to build one")
	return nil
}

func (o *indexOrigin) loadStore(ctx context.Context) (*index.Index, error) {
	store, err := index.OpenStore(o.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx)
}

// rebuild indexes the reference directory, installs the result and
// persists it to the SQLite store when one is configured.
func (o *indexOrigin) rebuild(ctx context.Context) (*metaclassify.BuildSummary, error) {
	if o.cfg.ReferenceDir == "" {
		return nil, fmt.Errorf("reference_dir is not configured")
	}

	sources, err := metaclassify.ReadSources(o.cfg.ReferenceDir)
	if err != nil {
		return nil, err
	}

	summary, err := o.engine.BuildIndex(ctx, sources)
	if err != nil {
		return nil, err
	}
	for _, w := range summary.Warnings {
		log.Printf("Build warning: %s", w)
	}
	log.Printf("Indexed %d references from %s: %s k-mers, digest %s, %s",
		summary.Records, o.cfg.ReferenceDir, humanize.Comma(int64(summary.Size)), summary.Digest, summary.Duration.Round(time.Millisecond))

	if o.cfg.DBPath != "" {
		store, err := index.OpenStore(o.cfg.DBPath)
		if err != nil {
			return summary, err
		}
		defer store.Close()

		if err := store.Save(ctx, o.engine.Index()); err != nil {
			return summary, fmt.Errorf("persisting index: %w", err)
		}
		log.Printf("Persisted index to %s", o.cfg.DBPath)
	}

	return summary, nil
}

// startReloadScheduler rebuilds the index on the reload_schedule cron
// expression until ctx is done. It returns false when no schedule is
// configured.
func (o *indexOrigin) startReloadScheduler(ctx context.Context) bool {
	schedule := strings.TrimSpace(o.cfg.ReloadSchedule)
	if schedule == "" {
		log.Println("Scheduled reload disabled (reload_schedule not set)")
		return false
	}
	if o.cfg.ReferenceDir == "" {
		log.Println("Scheduled reload disabled: reference_dir is not configured")
		return false
	}

	sched, err := config.ScheduleParser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid reload_schedule '%s': %v; scheduled reload disabled", schedule, err)
		return false
	}
	log.Printf("Index reload scheduled (cron: %s) from %s", schedule, o.cfg.ReferenceDir)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next index reload at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if _, err := o.rebuild(ctx); err != nil {
				log.Printf("Scheduled reload error: %v", err)
			}
		}
	}()
	return true
}
