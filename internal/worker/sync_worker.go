// Package worker pushes stored household records to the cloud sync backend
// when change notifications arrive, and recovers missed notifications at
// startup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"casalfinance/internal/amqp"
	"casalfinance/internal/log"
	"casalfinance/internal/sheets"
	"casalfinance/internal/storage"
)

// Applier takes a remote record as the new local state.
type Applier interface {
	ApplyRemote(ctx context.Context, key string, payload []byte) error
}

// SyncWorker copies records between the local store and the sync backend.
type SyncWorker struct {
	store       storage.Store
	syncer      sheets.Syncer
	concurrency int
}

func NewSyncWorker(store storage.Store, syncer sheets.Syncer, concurrency int) *SyncWorker {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SyncWorker{
		store:       store,
		syncer:      syncer,
		concurrency: concurrency,
	}
}

// HandleSyncMessage pushes the current stored copy of the announced record.
// A record deleted since the announcement is skipped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		log.FieldHousehold, msg.Household,
		log.FieldKey, msg.Key,
		log.FieldVersion, msg.Version)

	if !storage.KnownKey(msg.Key) {
		// Redelivering would not help.
		slog.WarnContext(ctx, "Dropping sync message for unknown key",
			log.FieldHousehold, msg.Household,
			log.FieldKey, msg.Key)
		return nil
	}

	pushed, err := w.pushRecord(ctx, msg.Household, msg.Key)
	if err != nil {
		return err
	}
	if !pushed {
		slog.WarnContext(ctx, "Record no longer stored, nothing to sync",
			log.FieldHousehold, msg.Household,
			log.FieldKey, msg.Key)
	}
	return nil
}

func (w *SyncWorker) pushRecord(ctx context.Context, household, key string) (bool, error) {
	if w.syncer == nil {
		return false, sheets.ErrNotConfigured
	}
	payload, ok, err := w.store.Get(ctx, household, key)
	if err != nil {
		return false, fmt.Errorf("get %s/%s from storage: %w", household, key, err)
	}
	if !ok {
		return false, nil
	}
	if err := w.syncer.Push(ctx, household, key, payload); err != nil {
		return false, fmt.Errorf("push %s/%s: %w", household, key, err)
	}
	slog.InfoContext(ctx, "Successfully synced record",
		log.FieldOperation, log.OpSync,
		log.FieldHousehold, household,
		log.FieldKey, key,
		"bytes", len(payload))
	return true, nil
}

// PushHousehold pushes every stored record of a household in parallel and
// returns how many were pushed.
func (w *SyncWorker) PushHousehold(ctx context.Context, household string) (int, error) {
	keys, err := w.store.List(ctx, household)
	if err != nil {
		return 0, fmt.Errorf("list records of %s: %w", household, err)
	}

	var pushed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			ok, err := w.pushRecord(gctx, household, key)
			if ok {
				pushed.Add(1)
			}
			return err
		})
	}
	err = g.Wait()
	return int(pushed.Load()), err
}

// StartupSyncCheck pushes every household's records so that notifications
// lost while the worker was down are recovered. Failures are counted, not
// fatal.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	households, err := w.store.Households(ctx)
	if err != nil {
		return fmt.Errorf("list households for startup check: %w", err)
	}
	if len(households) == 0 {
		slog.InfoContext(ctx, "No households found on startup")
		return nil
	}

	successCount := 0
	errorCount := 0
	for _, h := range households {
		n, err := w.PushHousehold(ctx, h)
		successCount += n
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync household during startup",
				log.FieldHousehold, h,
				log.FieldError, err)
			errorCount++
		}
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"households", len(households),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

// PullHousehold fetches every known record of a household from the sync
// backend and hands it to dst. Records missing remotely are left alone.
func (w *SyncWorker) PullHousehold(ctx context.Context, household string, dst Applier) (int, error) {
	if w.syncer == nil {
		return 0, sheets.ErrNotConfigured
	}
	applied := 0
	var errs []error
	for _, key := range storage.Keys {
		if key == storage.KeyDarkMode {
			continue
		}
		payload, ok, err := w.syncer.Pull(ctx, household, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("pull %s: %w", key, err))
			continue
		}
		if !ok {
			continue
		}
		if err := dst.ApplyRemote(ctx, key, payload); err != nil {
			errs = append(errs, err)
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}
