// Package indexer owns the forward and inverted indexes: it builds them from
// source documents or loads them from the store, persists newly built
// halves through the shared task pool, and publishes immutable snapshots
// for the search and autocomplete paths.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/taskpool"
)

// Store is the persistence contract the engine needs.
type Store interface {
	HasForwardIndex(ctx context.Context) (bool, error)
	HasInvertedIndex(ctx context.Context) (bool, error)
	LoadForwardIndex(ctx context.Context) ([]index.Document, error)
	SaveForwardIndex(ctx context.Context, docs []index.Document) error
	LoadInvertedIndex(ctx context.Context) (map[string]index.PostingList, error)
	SaveInvertedIndex(ctx context.Context, shard []index.TermEntry) error
	LoadSourceDocuments(ctx context.Context) ([]index.Document, error)
	ResetIndex(ctx context.Context) error
}

// Options tunes the engine. PersistParallelism caps the number of inverted
// persistence shards; zero means GOMAXPROCS. PersistRetry governs retries
// of persistence writes that fail transiently; zero values take the
// resilience defaults.
type Options struct {
	PersistParallelism int
	PersistRetry       resilience.RetryConfig
	Metrics            *metrics.Metrics
}

// Snapshot is one consistent, read-only generation of both indexes.
type Snapshot struct {
	Forward  *index.ForwardIndex
	Inverted *index.InvertedIndex
	BuiltAt  time.Time
}

// LookupDocument is safe on a nil snapshot.
func (s *Snapshot) LookupDocument(id int64) (index.Document, bool) {
	if s == nil {
		return index.Document{}, false
	}
	return s.Forward.Lookup(id)
}

func (s *Snapshot) LookupTerm(term string) (index.PostingList, bool) {
	if s == nil {
		return nil, false
	}
	return s.Inverted.Lookup(term)
}

// Phase records how one half of the index was obtained.
type Phase string

const (
	PhaseBuilt   Phase = "built"
	PhaseLoaded  Phase = "loaded"
	PhaseFailed  Phase = "failed"
	PhaseSkipped Phase = "skipped"
)

// Report summarises an Initialize or Reload run.
type Report struct {
	Forward         Phase         `json:"forward"`
	Inverted        Phase         `json:"inverted"`
	Documents       int           `json:"documents"`
	Terms           int           `json:"terms"`
	PersistedShards int           `json:"persisted_shards"`
	FailedShards    int           `json:"failed_shards"`
	SkippedTerms    int           `json:"skipped_terms"`
	Duration        time.Duration `json:"duration"`
}

// Stats describes the published snapshot.
type Stats struct {
	Documents int       `json:"documents"`
	Terms     int       `json:"terms"`
	BuiltAt   time.Time `json:"built_at"`
}

type Engine struct {
	store       Store
	pool        *taskpool.Pool
	tokenizer   index.Tokenizer
	parallelism int
	retry       resilience.RetryConfig
	metrics     *metrics.Metrics
	logger      *slog.Logger

	current atomic.Pointer[Snapshot]

	// Serialises Initialize and Reload; readers never take it.
	buildMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []func(*Snapshot)
}

func NewEngine(store Store, pool *taskpool.Pool, tok index.Tokenizer, opts Options) *Engine {
	parallelism := opts.PersistParallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	e := &Engine{
		store:       store,
		pool:        pool,
		tokenizer:   tok,
		parallelism: parallelism,
		retry:       opts.PersistRetry,
		metrics:     opts.Metrics,
		logger:      slog.Default().With("component", "indexer"),
	}
	e.retry.Logger = e.logger
	if e.metrics != nil {
		e.retry.OnRetry = func(name string, _ int, _ error) {
			e.metrics.RetriesTotal.WithLabelValues(name).Inc()
		}
	}
	return e
}

// OnPublish registers fn to run after every snapshot swap.
func (e *Engine) OnPublish(fn func(*Snapshot)) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Initialize loads each index half from the store when present and builds
// it otherwise, publishes the result, then persists only the halves it
// built. Failures are joined into the returned error; whatever succeeded is
// still published, so a non-nil error does not mean an empty index.
func (e *Engine) Initialize(ctx context.Context) (*Report, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()
	report := &Report{}
	var errs []error

	fwd, fwdPhase, err := e.initForward(ctx)
	report.Forward = fwdPhase
	if err != nil {
		e.logger.Error("forward index unavailable", "error", err)
		errs = append(errs, err)
		fwd, _ = index.NewForwardIndex(nil)
	}

	var (
		inv      *index.InvertedIndex
		invPhase Phase
	)
	if report.Forward == PhaseFailed {
		// Postings must reference forward entries; without them there is
		// nothing valid to build or load.
		invPhase = PhaseSkipped
	} else {
		inv, invPhase, err = e.initInverted(ctx, fwd)
		if err != nil {
			e.logger.Error("inverted index unavailable", "error", err)
			errs = append(errs, err)
		}
	}
	if inv == nil {
		inv = index.NewInvertedIndex(nil)
	}
	report.Inverted = invPhase

	snap := &Snapshot{Forward: fwd, Inverted: inv, BuiltAt: time.Now()}
	e.publish(snap)
	report.Documents = fwd.Len()
	report.Terms = inv.Len()

	if err := e.persist(ctx, snap, report.Forward == PhaseBuilt, report.Inverted == PhaseBuilt, report); err != nil {
		errs = append(errs, err)
	}

	report.Duration = time.Since(start)
	e.logger.Info("index initialized",
		"forward", report.Forward,
		"inverted", report.Inverted,
		"documents", report.Documents,
		"terms", report.Terms,
		"persisted_shards", report.PersistedShards,
		"failed_shards", report.FailedShards,
		"skipped_terms", report.SkippedTerms,
		"duration", report.Duration,
	)
	return report, errors.Join(errs...)
}

func (e *Engine) initForward(ctx context.Context) (*index.ForwardIndex, Phase, error) {
	type result struct {
		fwd   *index.ForwardIndex
		phase Phase
	}
	h, err := taskpool.Submit(ctx, e.pool, taskpool.TaskBuildIndex, func(ctx context.Context) (result, error) {
		has, err := e.store.HasForwardIndex(ctx)
		if err != nil {
			return result{}, err
		}
		if has {
			docs, err := e.store.LoadForwardIndex(ctx)
			if err != nil {
				return result{}, err
			}
			fwd, err := index.NewForwardIndex(docs)
			if err != nil {
				return result{}, err
			}
			return result{fwd, PhaseLoaded}, nil
		}
		src, err := e.store.LoadSourceDocuments(ctx)
		if err != nil {
			return result{}, err
		}
		fwd, err := index.BuildForwardIndex(ctx, src)
		if err != nil {
			return result{}, err
		}
		return result{fwd, PhaseBuilt}, nil
	})
	if err != nil {
		return nil, PhaseFailed, fmt.Errorf("submitting forward index task: %w", err)
	}
	res, err := h.Wait(ctx)
	if err != nil {
		return nil, PhaseFailed, fmt.Errorf("forward index: %w", err)
	}
	e.logger.Info("forward index ready", "phase", res.phase, "documents", res.fwd.Len())
	return res.fwd, res.phase, nil
}

func (e *Engine) initInverted(ctx context.Context, fwd *index.ForwardIndex) (*index.InvertedIndex, Phase, error) {
	type result struct {
		inv   *index.InvertedIndex
		phase Phase
	}
	h, err := taskpool.Submit(ctx, e.pool, taskpool.TaskBuildIndex, func(ctx context.Context) (result, error) {
		has, err := e.store.HasInvertedIndex(ctx)
		if err != nil {
			return result{}, err
		}
		if has {
			terms, err := e.store.LoadInvertedIndex(ctx)
			if err != nil {
				return result{}, err
			}
			inv, dropped := index.NewInvertedIndex(terms).Restrict(fwd.Len())
			if dropped > 0 {
				e.logger.Warn("dropped postings referencing unknown documents",
					"dropped", dropped,
					"documents", fwd.Len(),
				)
			}
			return result{inv, PhaseLoaded}, nil
		}
		inv, err := index.BuildInvertedIndex(ctx, fwd, e.tokenizer)
		if err != nil {
			return result{}, err
		}
		return result{inv, PhaseBuilt}, nil
	})
	if err != nil {
		return nil, PhaseFailed, fmt.Errorf("submitting inverted index task: %w", err)
	}
	res, err := h.Wait(ctx)
	if err != nil {
		return nil, PhaseFailed, fmt.Errorf("inverted index: %w", err)
	}
	e.logger.Info("inverted index ready", "phase", res.phase, "terms", res.inv.Len())
	return res.inv, res.phase, nil
}

// Reload rebuilds both indexes from the source documents into a fresh
// snapshot and swaps it in atomically. Readers keep the previous snapshot
// until the swap; a failed build leaves it in place. The rebuilt indexes
// then replace the persisted ones.
func (e *Engine) Reload(ctx context.Context) (*Report, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()
	snap, err := e.rebuild(ctx)
	if err != nil {
		e.countReload("failed")
		e.logger.Error("index reload failed, keeping current snapshot", "error", err)
		return nil, fmt.Errorf("rebuilding index: %w", err)
	}
	return e.finishReload(ctx, snap, start)
}

func (e *Engine) rebuild(ctx context.Context) (*Snapshot, error) {
	h, err := taskpool.Submit(ctx, e.pool, taskpool.TaskBuildIndex, func(ctx context.Context) (*Snapshot, error) {
		src, err := e.store.LoadSourceDocuments(ctx)
		if err != nil {
			return nil, err
		}
		fwd, err := index.BuildForwardIndex(ctx, src)
		if err != nil {
			return nil, err
		}
		inv, err := index.BuildInvertedIndex(ctx, fwd, e.tokenizer)
		if err != nil {
			return nil, err
		}
		return &Snapshot{Forward: fwd, Inverted: inv, BuiltAt: time.Now()}, nil
	})
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}

func (e *Engine) finishReload(ctx context.Context, snap *Snapshot, start time.Time) (*Report, error) {
	e.publish(snap)
	report := &Report{
		Forward:   PhaseBuilt,
		Inverted:  PhaseBuilt,
		Documents: snap.Forward.Len(),
		Terms:     snap.Inverted.Len(),
	}

	err := e.runPersist(ctx, "reset_index", e.store.ResetIndex)
	if err == nil {
		err = e.persist(ctx, snap, true, true, report)
	} else {
		err = fmt.Errorf("clearing persisted index: %w", err)
	}

	report.Duration = time.Since(start)
	if err != nil {
		e.countReload("persist_failed")
		e.logger.Error("reloaded index served but not fully persisted", "error", err)
		return report, err
	}
	e.countReload("ok")
	e.logger.Info("index reloaded",
		"documents", report.Documents,
		"terms", report.Terms,
		"duration", report.Duration,
	)
	return report, nil
}

// persist saves the requested halves concurrently. Each inverted shard is
// its own task; a failing shard does not stop the others, and every shard
// is awaited before returning. No more writes are in flight than the pool
// holds at once, so discard and throw policies do not reject them.
func (e *Engine) persist(ctx context.Context, snap *Snapshot, forward, inverted bool, report *Report) error {
	if !forward && !inverted {
		return nil
	}
	var (
		g          errgroup.Group
		forwardErr error
		shards     [][]index.TermEntry
		shardErrs  []error
		skipped    atomic.Int64
	)
	g.SetLimit(e.pool.Capacity())
	if forward {
		g.Go(func() error {
			forwardErr = e.persistForward(ctx, snap.Forward)
			return forwardErr
		})
	}
	if inverted {
		shards = snap.Inverted.Shards(e.parallelism)
		shardErrs = make([]error, len(shards))
		for i, shard := range shards {
			g.Go(func() error {
				n, err := e.persistShard(ctx, i, shard)
				skipped.Add(int64(n))
				shardErrs[i] = err
				return err
			})
		}
	}
	firstErr := g.Wait()
	report.SkippedTerms = int(skipped.Load())
	report.PersistedShards = len(shards)
	if firstErr == nil {
		for range shards {
			e.countShard("ok")
		}
		return nil
	}

	errs := []error{forwardErr}
	for _, err := range shardErrs {
		if err != nil {
			report.PersistedShards--
			report.FailedShards++
			e.countShard("failed")
		} else {
			e.countShard("ok")
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// runPersist runs save as a persist_index task. Rejections by a full queue
// and store outages are retried; each write is one transaction, so a retry
// never duplicates rows.
func (e *Engine) runPersist(ctx context.Context, op string, save func(context.Context) error) error {
	return resilience.Retry(ctx, op, e.retry, func() error {
		h, err := taskpool.Submit(ctx, e.pool, taskpool.TaskPersistIndex, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, save(ctx)
		})
		if err != nil {
			return err
		}
		_, err = h.Wait(ctx)
		return err
	})
}

func (e *Engine) persistForward(ctx context.Context, fwd *index.ForwardIndex) error {
	err := e.runPersist(ctx, "persist_forward", func(ctx context.Context) error {
		return e.store.SaveForwardIndex(ctx, fwd.Slice())
	})
	if err != nil {
		e.logger.Error("forward index persistence failed", "documents", fwd.Len(), "error", err)
		return fmt.Errorf("persisting forward index: %w", err)
	}
	return nil
}

// persistShard drops oversized terms and writes the rest of the shard. It
// returns the number of terms dropped.
func (e *Engine) persistShard(ctx context.Context, id int, shard []index.TermEntry) (int, error) {
	kept := make([]index.TermEntry, 0, len(shard))
	skipped := 0
	for _, entry := range shard {
		if n := utf8.RuneCountInString(entry.Term); n > index.MaxTermLength {
			skipped++
			e.logger.Warn("skipping oversized term",
				"shard", id,
				"term_prefix", truncate(entry.Term, 32),
				"length", n,
				"max", index.MaxTermLength,
			)
			if e.metrics != nil {
				e.metrics.SkippedTermsTotal.Inc()
			}
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) == 0 {
		return skipped, nil
	}

	err := e.runPersist(ctx, "persist_inverted_shard", func(ctx context.Context) error {
		return e.store.SaveInvertedIndex(ctx, kept)
	})
	if err != nil {
		e.logger.Error("inverted shard persistence failed",
			"shard", id,
			"terms", len(kept),
			"first_term", kept[0].Term,
			"error", err,
		)
		return skipped, fmt.Errorf("persisting inverted shard %d: %w", id, err)
	}
	e.logger.Debug("inverted shard persisted", "shard", id, "terms", len(kept))
	return skipped, nil
}

func (e *Engine) publish(snap *Snapshot) {
	e.current.Store(snap)
	if e.metrics != nil {
		e.metrics.IndexDocuments.Set(float64(snap.Forward.Len()))
		e.metrics.IndexTerms.Set(float64(snap.Inverted.Len()))
	}
	e.listenersMu.Lock()
	listeners := append([]func(*Snapshot){}, e.listeners...)
	e.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Snapshot returns the published generation, or nil before the first
// Initialize.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// LookupDocument returns the document with the given dense id from the
// published snapshot. Callers combining several lookups should pin one
// Snapshot instead.
func (e *Engine) LookupDocument(id int64) (index.Document, bool) {
	return e.current.Load().LookupDocument(id)
}

// LookupTerm returns the postings of an exact, already-normalised term.
func (e *Engine) LookupTerm(term string) (index.PostingList, bool) {
	return e.current.Load().LookupTerm(term)
}

// Terms iterates over the vocabulary of the published snapshot.
func (e *Engine) Terms() iter.Seq2[string, index.PostingList] {
	snap := e.current.Load()
	if snap == nil {
		return func(func(string, index.PostingList) bool) {}
	}
	return snap.Inverted.Terms()
}

func (e *Engine) Stats() Stats {
	snap := e.current.Load()
	if snap == nil {
		return Stats{}
	}
	return Stats{
		Documents: snap.Forward.Len(),
		Terms:     snap.Inverted.Len(),
		BuiltAt:   snap.BuiltAt,
	}
}

// HealthCheck reports down until the first snapshot is published.
func (e *Engine) HealthCheck(context.Context) health.ComponentHealth {
	snap := e.current.Load()
	if snap == nil {
		return health.ComponentHealth{Status: health.StatusDown, Message: "no index published"}
	}
	return health.ComponentHealth{
		Status: health.StatusUp,
		Message: fmt.Sprintf("%d documents, %d terms, built %s ago",
			snap.Forward.Len(), snap.Inverted.Len(), time.Since(snap.BuiltAt).Round(time.Second)),
	}
}

func (e *Engine) countShard(status string) {
	if e.metrics != nil {
		e.metrics.PersistShardsTotal.WithLabelValues(status).Inc()
	}
}

func (e *Engine) countReload(status string) {
	if e.metrics != nil {
		e.metrics.IndexReloadsTotal.WithLabelValues(status).Inc()
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
