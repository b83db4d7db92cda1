package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"local-gallery/internal/library"
	"local-gallery/internal/logging"
	"local-gallery/internal/metrics"
	"local-gallery/internal/pathset"
)

const (
	queueSize    = 4096
	maxBatchSize = 256
)

// op is one unit of work for the writer. Exactly one field is set.
type op struct {
	change *library.Change
	reset  string
	flush  chan struct{}
}

// Applied queues the changes of an applied event for persistence.
func (d *Database) Applied(_ library.Event, out library.Outcome) {
	if d.replaying.Load() {
		return
	}
	for i := range out.Changes {
		d.enqueue(op{change: &out.Changes[i]})
	}
}

// Reset queues removal of a root and everything stored for it.
func (d *Database) Reset(root string) {
	d.enqueue(op{reset: root})
}

// enqueue blocks while the queue is full, which holds back cache writers
// until the write loop catches up. The write loop never calls the cache.
func (d *Database) enqueue(o op) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.StoreDroppedTotal.Inc()
		logging.Warn("database: dropping change after close")
		return false
	}
	d.queue <- o
	metrics.StoreQueueDepth.Set(float64(len(d.queue)))
	return true
}

// Flush blocks until every change queued before the call is committed.
func (d *Database) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !d.enqueue(op{flush: done}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Database) writeLoop() {
	defer close(d.done)

	batch := make([]op, 0, maxBatchSize)
	for first := range d.queue {
		batch = append(batch[:0], first)
	fill:
		for len(batch) < maxBatchSize {
			select {
			case o, ok := <-d.queue:
				if !ok {
					break fill
				}
				batch = append(batch, o)
			default:
				break fill
			}
		}
		metrics.StoreQueueDepth.Set(float64(len(d.queue)))
		d.commit(batch)
	}
}

// commit writes a batch in one transaction and releases waiting flushes.
// A failed batch is logged and dropped.
func (d *Database) commit(batch []op) {
	var flushes []chan struct{}
	changes := 0
	for _, o := range batch {
		if o.flush != nil {
			flushes = append(flushes, o.flush)
		} else {
			changes++
		}
	}
	defer func() {
		for _, f := range flushes {
			close(f)
		}
	}()
	if changes == 0 {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		for _, o := range batch {
			switch {
			case o.change != nil:
				if err := writeChange(ctx, tx, o.change); err != nil {
					return err
				}
			case o.reset != "":
				if err := resetRoot(ctx, tx, o.reset); err != nil {
					return err
				}
			}
		}
		return nil
	})
	recordQuery("commit_changes", start, err)
	metrics.StoreBatchSize.Observe(float64(changes))

	if err != nil {
		metrics.StoreDroppedTotal.Add(float64(changes))
		logging.Error("database: failed to commit %d changes: %v", changes, err)
		return
	}
	logging.Debug("database: committed %d changes in %v", changes, time.Since(start))
}

func writeChange(ctx context.Context, tx *sql.Tx, ch *library.Change) error {
	root := ch.Root
	var summary sql.NullString
	if root.LastSummary != nil {
		data, err := json.Marshal(root.LastSummary)
		if err != nil {
			return err
		}
		summary = sql.NullString{String: string(data), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO roots (key, path, state, record_count, last_summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			path = excluded.path,
			state = excluded.state,
			record_count = excluded.record_count,
			last_summary = excluded.last_summary,
			updated_at = excluded.updated_at
	`, root.Key, root.Path, root.State.String(), root.RecordCount, summary, root.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert root %s: %w", root.Path, err)
	}

	if len(ch.Upserted) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO records (key, root_key, seq, path, data)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE root_key = ?), ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				path = excluded.path,
				data = excluded.data
		`)
		if err != nil {
			return err
		}
		for _, rec := range ch.Upserted {
			key, err := pathset.Normalize(rec.Path)
			if err != nil {
				logging.Warn("database: skipping record with malformed path %q", rec.Path)
				continue
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return errors.Join(fmt.Errorf("encode record %s: %w", rec.Path, err), stmt.Close())
			}
			if _, err := stmt.ExecContext(ctx, string(key), root.Key, root.Key, rec.Path, string(data)); err != nil {
				return errors.Join(fmt.Errorf("upsert record %s: %w", rec.Path, err), stmt.Close())
			}
		}
		if err := stmt.Close(); err != nil {
			return err
		}
	}

	for _, path := range ch.Removed {
		key, err := pathset.Normalize(path)
		if err != nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE key = ?", string(key)); err != nil {
			return fmt.Errorf("delete record %s: %w", path, err)
		}
	}
	return nil
}

func resetRoot(ctx context.Context, tx *sql.Tx, root string) (err error) {
	start := time.Now()
	defer func() { recordQuery("reset_root", start, err) }()

	key, err := pathset.Normalize(root)
	if err != nil {
		return nil
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM records WHERE root_key = ?", string(key)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM folder_snapshots WHERE root_key = ?", string(key)); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM roots WHERE key = ?", string(key))
	return err
}

// storedRoot is a roots row.
type storedRoot struct {
	key     string
	path    string
	summary *library.Summary
}

// LoadLibrary replays the stored roots and records into cache. It must run
// before any other events reach the cache. It returns the number of roots
// and records loaded.
func (d *Database) LoadLibrary(ctx context.Context, cache *library.Cache) (roots, records int, err error) {
	start := time.Now()
	defer func() { recordQuery("load_library", start, err) }()

	d.replaying.Store(true)
	defer d.replaying.Store(false)

	stored, err := d.loadRoots(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, root := range stored {
		recs, err := d.loadRecords(ctx, root.key)
		if err != nil {
			return roots, records, err
		}
		if len(recs) > 0 {
			if _, err := cache.Apply(library.RecordBatchUpsert{Root: root.path, Records: recs}); err != nil {
				logging.Warn("database: some stored records of %s were rejected: %v", root.path, err)
			}
		}
		summary := library.Summary{Total: len(recs), Unchanged: len(recs)}
		if root.summary != nil {
			summary = *root.summary
		}
		if _, err := cache.Apply(library.CompletedSummary{Root: root.path, Summary: summary}); err != nil {
			return roots, records, fmt.Errorf("restore root %s: %w", root.path, err)
		}
		roots++
		records += len(recs)
	}

	logging.Info("Loaded %d roots with %d records from database", roots, records)
	return roots, records, nil
}

func (d *Database) loadRoots(ctx context.Context) ([]storedRoot, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT key, path, last_summary FROM roots ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storedRoot
	for rows.Next() {
		var (
			r       storedRoot
			summary sql.NullString
		)
		if err := rows.Scan(&r.key, &r.path, &summary); err != nil {
			return nil, err
		}
		if summary.Valid {
			var s library.Summary
			if err := json.Unmarshal([]byte(summary.String), &s); err != nil {
				logging.Warn("database: ignoring corrupt summary for %s: %v", r.path, err)
			} else {
				r.summary = &s
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *Database) loadRecords(ctx context.Context, rootKey string) ([]library.FileRecord, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT path, data FROM records WHERE root_key = ? ORDER BY seq", rootKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.FileRecord
	for rows.Next() {
		var path, data string
		if err := rows.Scan(&path, &data); err != nil {
			return nil, err
		}
		var rec library.FileRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			logging.Warn("database: skipping corrupt record %s: %v", path, err)
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
