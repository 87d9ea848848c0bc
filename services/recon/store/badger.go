// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// =============================================================================
// Configuration
// =============================================================================

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory is true.
	Path string

	// InMemory keeps all data in memory. Nothing is persisted.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil silences them.
	Logger *slog.Logger

	// GCInterval is how often value-log GC runs. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the value-log GC discard threshold.
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns settings for a persistent store.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns settings for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// =============================================================================
// BadgerStore
// =============================================================================

// BadgerStore is a Store backed by BadgerDB.
//
// Description:
//
//	Read phases run in badger View transactions. A write phase runs in
//	one update transaction until badger reports ErrTxnTooBig; the filled
//	transaction is then committed and the phase continues in a fresh one.
//	If a phase that spilled fails, every key it wrote is restored from a
//	snapshot taken when the phase began, so a failed phase still leaves
//	nothing behind. Entities and dependencies are msgpack encoded.
//	Relation weights are raw float64 bits keyed by kind and endpoint ids.
//
// Thread Safety: Safe for concurrent use. Write phases are serialized.
// Readers running beside a spilled phase may see its committed chunks.
type BadgerStore struct {
	db      *badger.DB
	gc      *gcRunner
	logger  *slog.Logger
	writeMu sync.Mutex
	closed  atomic.Bool
}

// OpenBadger opens or creates a BadgerStore.
//
// Outputs:
//
//	*BadgerStore - The open store. Caller must Close it.
//	error - Non-nil if the path is missing or badger fails to open.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &BadgerStore{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		s.gc.start()
	}
	return s, nil
}

// Read implements Store.
func (s *BadgerStore) Read(ctx context.Context, fn func(Reader) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// Write implements Store.
func (s *BadgerStore) Write(ctx context.Context, fn func(Writer) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	p := newWritePhase(s.db)
	defer p.discard()

	err := fn(&badgerTx{phase: p})
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = p.commit()
	}
	if p.spills > 0 && s.logger != nil {
		s.logger.Debug("badger write phase spilled",
			slog.Int("spills", p.spills),
			slog.Int("keys", len(p.touched)),
			slog.Bool("failed", err != nil),
		)
	}
	if err != nil {
		return p.rollback(err)
	}
	return nil
}

// Close stops GC and closes the database. Safe to call twice.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// =============================================================================
// Write phases
// =============================================================================

// writePhase is one Write call. Keys written are tracked so a phase that
// already committed chunks can be undone from the snapshot.
type writePhase struct {
	db       *badger.DB
	snapshot *badger.Txn
	txn      *badger.Txn
	touched  map[string]struct{}
	spills   int
}

func newWritePhase(db *badger.DB) *writePhase {
	return &writePhase{
		db:       db,
		snapshot: db.NewTransaction(false),
		txn:      db.NewTransaction(true),
		touched:  make(map[string]struct{}),
	}
}

// set writes key, committing the current transaction first when it is
// full.
func (p *writePhase) set(key, val []byte) error {
	err := p.txn.Set(key, val)
	if errors.Is(err, badger.ErrTxnTooBig) {
		if err := p.spill(); err != nil {
			return err
		}
		err = p.txn.Set(key, val)
	}
	if err != nil {
		return err
	}
	p.touched[string(key)] = struct{}{}
	return nil
}

func (p *writePhase) spill() error {
	if err := p.txn.Commit(); err != nil {
		return fmt.Errorf("commit chunk %d: %w", p.spills+1, err)
	}
	p.spills++
	p.txn = p.db.NewTransaction(true)
	return nil
}

func (p *writePhase) commit() error {
	return p.txn.Commit()
}

// rollback discards the open transaction and, when chunks were already
// committed, restores every touched key to its snapshot value. The
// returned error always wraps cause.
func (p *writePhase) rollback(cause error) error {
	p.txn.Discard()
	if p.spills == 0 {
		return cause
	}

	wb := p.db.NewWriteBatch()
	for key := range p.touched {
		if err := p.restore(wb, []byte(key)); err != nil {
			wb.Cancel()
			return errors.Join(cause, fmt.Errorf("restore after %d chunks: %w", p.spills, err))
		}
	}
	if err := wb.Flush(); err != nil {
		return errors.Join(cause, fmt.Errorf("restore after %d chunks: %w", p.spills, err))
	}
	return cause
}

func (p *writePhase) restore(wb *badger.WriteBatch, key []byte) error {
	item, err := p.snapshot.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return wb.Delete(key)
	}
	if err != nil {
		return err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	return wb.Set(key, val)
}

func (p *writePhase) discard() {
	p.txn.Discard()
	p.snapshot.Discard()
}

// badgerTx serves both phases. Read phases carry txn; write phases carry
// phase, whose transaction changes when it spills. Writes inside a read
// phase fail with badger.ErrReadOnlyTxn.
type badgerTx struct {
	txn   *badger.Txn
	phase *writePhase
}

func (t *badgerTx) tx() *badger.Txn {
	if t.phase != nil {
		return t.phase.txn
	}
	return t.txn
}

func (t *badgerTx) set(key, val []byte) error {
	if t.phase != nil {
		return t.phase.set(key, val)
	}
	return t.txn.Set(key, val)
}

func (t *badgerTx) TypeIDs(ctx context.Context) ([]graph.EntityID, error) {
	var ids []graph.EntityID
	err := t.scanEntities(func(e Entity) {
		if e.Kind == KindType && e.Internal {
			ids = append(ids, e.ID)
		}
	})
	return ids, err
}

func (t *badgerTx) Entity(ctx context.Context, id graph.EntityID) (Entity, error) {
	item, err := t.tx().Get(entityKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entity{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Entity{}, fmt.Errorf("get entity %d: %w", id, err)
	}
	var e Entity
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &e)
	})
	if err != nil {
		return Entity{}, fmt.Errorf("decode entity %d: %w", id, err)
	}
	return e, nil
}

func (t *badgerTx) Entities(ctx context.Context, kind EntityKind) ([]Entity, error) {
	out := make([]Entity, 0)
	err := t.scanEntities(func(e Entity) {
		if e.Kind == kind {
			out = append(out, e)
		}
	})
	return out, err
}

func (t *badgerTx) scanEntities(fn func(Entity)) error {
	return t.scan(prefixEntity, func(_ []byte, val []byte) error {
		var e Entity
		if err := msgpack.Unmarshal(val, &e); err != nil {
			return fmt.Errorf("decode entity: %w", err)
		}
		fn(e)
		return nil
	})
}

func (t *badgerTx) Relations(ctx context.Context, kind graph.Kind, ids []graph.EntityID) ([]graph.Triple, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	member := make(map[graph.EntityID]struct{}, len(sorted))
	for _, id := range sorted {
		member[id] = struct{}{}
	}

	var out []graph.Triple
	for _, src := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := t.scan(relationSourcePrefix(kind, src), func(key, val []byte) error {
			_, dst := splitPair(key)
			if _, ok := member[dst]; ok {
				out = append(out, graph.Triple{Source: src, Target: dst, Weight: decodeWeight(val)})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *badgerTx) Dependencies(ctx context.Context) ([]Dependency, error) {
	var out []Dependency
	err := t.scan(prefixDependency, func(key, val []byte) error {
		src, dst := splitPair(key)
		d := Dependency{Source: src, Target: dst}
		if err := msgpack.Unmarshal(val, &d.Counts); err != nil {
			return fmt.Errorf("decode dependency %d->%d: %w", src, dst, err)
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// scan visits every key under prefix in order.
func (t *badgerTx) scan(prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.tx().NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		err := item.Value(func(val []byte) error {
			return fn(key, val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *badgerTx) maxID() (graph.EntityID, error) {
	item, err := t.tx().Get(keyMaxID)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var id graph.EntityID
	err = item.Value(func(val []byte) error {
		id = decodeID(val)
		return nil
	})
	return id, err
}

func (t *badgerTx) Candidates(ctx context.Context) ([]Candidate, error) {
	item, err := t.tx().Get(keyCandidates)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}
	var cs []Candidate
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &cs)
	})
	if err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return cs, nil
}

func (t *badgerTx) PutEntity(ctx context.Context, e Entity) (graph.EntityID, error) {
	top, err := t.maxID()
	if err != nil {
		return 0, fmt.Errorf("read id counter: %w", err)
	}
	if e.ID == 0 {
		e.ID = top + 1
	}
	if e.ID > top {
		if err := t.set(keyMaxID, encodeID(e.ID)); err != nil {
			return 0, fmt.Errorf("update id counter: %w", err)
		}
	}

	val, err := msgpack.Marshal(&e)
	if err != nil {
		return 0, fmt.Errorf("encode entity %d: %w", e.ID, err)
	}
	if err := t.set(entityKey(e.ID), val); err != nil {
		return 0, fmt.Errorf("put entity %d: %w", e.ID, err)
	}
	return e.ID, nil
}

func (t *badgerTx) PutRelation(ctx context.Context, kind graph.Kind, tr graph.Triple) error {
	src, dst := canonical(kind, tr.Source, tr.Target)
	if err := t.set(relationKey(kind, src, dst), encodeWeight(tr.Weight)); err != nil {
		return fmt.Errorf("put %s relation %d->%d: %w", kind, src, dst, err)
	}
	return nil
}

func (t *badgerTx) PutDependency(ctx context.Context, d Dependency) error {
	val, err := msgpack.Marshal(&d.Counts)
	if err != nil {
		return fmt.Errorf("encode dependency %d->%d: %w", d.Source, d.Target, err)
	}
	if err := t.set(dependencyKey(d.Source, d.Target), val); err != nil {
		return fmt.Errorf("put dependency %d->%d: %w", d.Source, d.Target, err)
	}
	return nil
}

func (t *badgerTx) PutCandidates(ctx context.Context, cs []Candidate) error {
	val, err := msgpack.Marshal(cs)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	if err := t.set(keyCandidates, val); err != nil {
		return fmt.Errorf("put candidates: %w", err)
	}
	return nil
}

func (t *badgerTx) CreateComponent(ctx context.Context, spec ComponentSpec) (graph.EntityID, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	return t.PutEntity(ctx, newComponent(spec))
}

// =============================================================================
// Value-log GC
// =============================================================================

// gcRunner periodically runs badger value-log GC.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) *gcRunner {
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			err := r.db.RunValueLogGC(r.ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				r.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}
