package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/staleserve/staleserve/pkg/cache"
	"github.com/staleserve/staleserve/pkg/events"
)

// scheduler decides, per cache lookup, whether to serve cached content
// as-is, serve it while refreshing in the background, block the
// request while generating, or fail. It is the only component that
// writes to the cache.
type scheduler struct {
	cache   *cache.Cache
	store   cache.Store
	locks   *lockTable
	logger  *slog.Logger
	metrics *Metrics
	tracing *Tracing
	events  events.Publisher

	blockTimeout      time.Duration
	backgroundTimeout time.Duration
	storeWriteTimeout time.Duration

	// wg tracks background regenerations and store writes so Flush and
	// shutdown can drain them.
	wg sync.WaitGroup

	// pending counts in-flight store writes per key so invalidation
	// can drain them before deleting; otherwise a write-through racing
	// the delete could re-persist the entry.
	pendingMu     sync.Mutex
	pendingDone   *sync.Cond
	pendingWrites map[cache.Key]int
}

func newScheduler(cfg *Config) *scheduler {
	s := &scheduler{
		cache:             cfg.Cache,
		store:             cfg.Store,
		locks:             newLockTable(),
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		tracing:           cfg.Tracing,
		events:            cfg.Events,
		blockTimeout:      cfg.BlockTimeout,
		backgroundTimeout: cfg.BackgroundTimeout,
		storeWriteTimeout: cfg.StoreWriteTimeout,
		pendingWrites:     make(map[cache.Key]int),
	}
	s.pendingDone = sync.NewCond(&s.pendingMu)
	return s
}

// serve runs the per-key policy state machine:
//
//	absent       → block until generated (or fallback decides otherwise)
//	fresh        → serve from cache
//	stale        → serve from cache, refresh in the background
//	regenerating → serve the stale artifact, refresh already in flight
func (s *scheduler) serve(ctx context.Context, rt *route, key cache.Key, req *RenderRequest) (*Response, error) {
	entry, ok := s.lookup(ctx, key)
	if ok {
		switch entry.State {
		case cache.StateFresh:
			s.metrics.recordLookup(rt.def.Pattern, "hit")
			return artifactResponse(entry.Artifact, "hit"), nil
		case cache.StateStale:
			s.metrics.recordLookup(rt.def.Pattern, "stale")
			s.dispatchRefresh(rt, key, req)
			return artifactResponse(entry.Artifact, "stale"), nil
		default: // regenerating: never start a second generation
			s.metrics.recordLookup(rt.def.Pattern, "stale")
			return artifactResponse(entry.Artifact, "stale"), nil
		}
	}

	known := rt.isPrerendered(key) || !rt.pattern.HasParams()
	switch DecideFallback(rt.def.Fallback, known) {
	case ActionNotFound:
		s.metrics.recordLookup(rt.def.Pattern, "rejected")
		return nil, ErrNotFound
	case ActionPlaceholder:
		s.metrics.recordLookup(rt.def.Pattern, "placeholder")
		s.dispatchBackfill(rt, key, req)
		return placeholderResponse(rt), nil
	default:
		s.metrics.recordLookup(rt.def.Pattern, "miss")
		artifact, err := s.generateBlocking(ctx, rt, key, req)
		if err != nil {
			return nil, err
		}
		return artifactResponse(artifact, "miss"), nil
	}
}

// lookup reads the cache, pulling an absent key from the persistent
// store first if one is configured. Staleness is derived on the way.
func (s *scheduler) lookup(ctx context.Context, key cache.Key) (cache.Entry, bool) {
	s.cache.MarkStale(key)
	if entry, ok := s.cache.Get(key); ok {
		return entry, true
	}

	if s.store == nil {
		return cache.Entry{}, false
	}
	stored, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("store lookup failed", "key", key, "error", err)
		return cache.Entry{}, false
	}
	if !ok {
		return cache.Entry{}, false
	}

	s.cache.Restore(key, stored)
	s.cache.MarkStale(key)
	entry, ok := s.cache.Get(key)
	return entry, ok
}

// generateBlocking generates an artifact while the request waits,
// coalescing concurrent first-time requests for the same key onto a
// single render call.
func (s *scheduler) generateBlocking(ctx context.Context, rt *route, key cache.Key, req *RenderRequest) (cache.Artifact, error) {
	l, acquired := s.locks.acquire(key)
	if !acquired {
		// Another request is generating this key; wait for it.
		select {
		case <-l.done:
			if entry, ok := s.cache.Get(key); ok {
				return entry.Artifact, nil
			}
			if l.err != nil {
				return cache.Artifact{}, l.err
			}
			return cache.Artifact{}, &GenerationError{
				Route: rt.def.Pattern,
				Key:   key,
				Err:   errors.New("coalesced generation produced no artifact"),
			}
		case <-ctx.Done():
			return cache.Artifact{}, ErrGenerationTimeout
		}
	}

	// Re-check after acquiring: the generation we raced with may have
	// completed between our lookup and the acquire.
	if entry, ok := s.cache.Get(key); ok {
		s.locks.release(key, l, nil)
		return entry.Artifact, nil
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.blockTimeout)
		defer cancel()
	}

	artifact, err := s.generate(ctx, rt, key, req, false)
	s.locks.release(key, l, err)
	return artifact, err
}

// dispatchRefresh starts a background regeneration for a stale entry.
// If a regeneration is already in flight for the key, the refresh is
// coalesced and nothing happens.
func (s *scheduler) dispatchRefresh(rt *route, key cache.Key, req *RenderRequest) {
	l, acquired := s.locks.acquire(key)
	if !acquired {
		return
	}
	if !s.cache.BeginRegeneration(key) {
		// State moved under us between lookup and acquire.
		s.locks.release(key, l, nil)
		return
	}
	s.spawn(rt, key, req, l, true)
}

// dispatchBackfill starts the first generation for a placeholder-mode
// key. There is no entry to transition; the lock alone provides the
// single-flight guarantee.
func (s *scheduler) dispatchBackfill(rt *route, key cache.Key, req *RenderRequest) {
	l, acquired := s.locks.acquire(key)
	if !acquired {
		return
	}
	s.spawn(rt, key, req, l, false)
}

// spawn runs a generation on its own goroutine, detached from the
// triggering request's deadline but bounded by the background timeout.
func (s *scheduler) spawn(rt *route, key cache.Key, req *RenderRequest, l *regenLock, refresh bool) {
	s.metrics.backgroundStarted()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.metrics.backgroundDone()

		ctx, cancel := context.WithTimeout(context.Background(), s.backgroundTimeout)
		defer cancel()

		_, err := s.generate(ctx, rt, key, req, true)
		if err != nil && refresh {
			// Keep the last good artifact; the entry stays eligible
			// for another attempt.
			s.cache.FailRegeneration(key)
		}
		s.locks.release(key, l, err)
	}()
}

// generate calls the render function and, on success, atomically swaps
// the new artifact into the cache and writes it through to the store.
func (s *scheduler) generate(ctx context.Context, rt *route, key cache.Key, req *RenderRequest, background bool) (cache.Artifact, error) {
	trigger := "blocking"
	if background {
		trigger = "background"
	}

	ctx, span := s.tracing.startGenerate(ctx, rt.def.Pattern, trigger)
	s.publish(events.Event{
		Type:       events.TypeGenerationStarted,
		Route:      rt.def.Pattern,
		Key:        key.String(),
		Background: background,
	})

	start := time.Now()
	res, err := s.invokeRender(ctx, rt, req)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			err = ErrGenerationTimeout
		} else {
			err = &GenerationError{Route: rt.def.Pattern, Key: key, Err: err}
		}
		s.metrics.recordGeneration(rt.def.Pattern, trigger, generationOutcome(err), elapsed)
		s.publish(events.Event{
			Type:       events.TypeGenerationFailed,
			Route:      rt.def.Pattern,
			Key:        key.String(),
			Background: background,
			Elapsed:    elapsed,
			Error:      err.Error(),
		})
		s.logger.Warn("generation failed",
			"route", rt.def.Pattern, "key", key, "trigger", trigger, "error", err)
		endSpan(span, err)
		return cache.Artifact{}, err
	}

	artifact := cache.Artifact{
		Body:    res.Body,
		Status:  res.Status,
		Headers: res.Headers,
	}
	if artifact.Status == 0 {
		artifact.Status = 200
	}

	revalidate := rt.def.Revalidate
	if res.Revalidate != nil {
		revalidate = *res.Revalidate
	}

	s.cache.Put(key, artifact, revalidate)
	s.writeThrough(key)

	s.metrics.recordGeneration(rt.def.Pattern, trigger, "success", elapsed)
	s.publish(events.Event{
		Type:       events.TypeGenerationSucceeded,
		Route:      rt.def.Pattern,
		Key:        key.String(),
		Background: background,
		Elapsed:    elapsed,
	})
	s.logger.Debug("generated artifact",
		"route", rt.def.Pattern, "key", key, "trigger", trigger, "elapsed", elapsed)
	endSpan(span, nil)
	return artifact, nil
}

// invokeRender runs the render function, honoring the context deadline
// even if the render does not. A render that outlives its deadline
// keeps running best-effort; its result is discarded.
func (s *scheduler) invokeRender(ctx context.Context, rt *route, req *RenderRequest) (*RenderResult, error) {
	type renderOutcome struct {
		res *RenderResult
		err error
	}
	ch := make(chan renderOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- renderOutcome{err: fmt.Errorf("render panic: %v", r)}
			}
		}()
		res, err := rt.def.Render(ctx, req)
		ch <- renderOutcome{res: res, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		if out.res == nil {
			return nil, errors.New("render returned no result")
		}
		return out.res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// writeThrough persists the freshly cached entry asynchronously. A
// failed write only costs durability, never correctness, so it is
// logged and dropped.
func (s *scheduler) writeThrough(key cache.Key) {
	if s.store == nil {
		return
	}
	entry, ok := s.cache.Get(key)
	if !ok {
		return
	}
	s.wg.Add(1)
	s.beginStoreWrite(key)
	go func() {
		defer s.wg.Done()
		defer s.endStoreWrite(key)
		ctx, cancel := context.WithTimeout(context.Background(), s.storeWriteTimeout)
		defer cancel()
		if err := s.store.Put(ctx, key, entry); err != nil {
			s.logger.Warn("store write-through failed", "key", key, "error", err)
		}
	}()
}

func (s *scheduler) beginStoreWrite(key cache.Key) {
	s.pendingMu.Lock()
	s.pendingWrites[key]++
	s.pendingMu.Unlock()
}

func (s *scheduler) endStoreWrite(key cache.Key) {
	s.pendingMu.Lock()
	if s.pendingWrites[key]--; s.pendingWrites[key] <= 0 {
		delete(s.pendingWrites, key)
	}
	s.pendingDone.Broadcast()
	s.pendingMu.Unlock()
}

// waitStoreWrites blocks until no write-through is in flight for key.
func (s *scheduler) waitStoreWrites(key cache.Key) {
	s.pendingMu.Lock()
	for s.pendingWrites[key] > 0 {
		s.pendingDone.Wait()
	}
	s.pendingMu.Unlock()
}

func (s *scheduler) publish(evt events.Event) {
	if s.events != nil {
		s.events.Publish(evt)
	}
}

// flush waits for in-flight background regenerations and store writes.
func (s *scheduler) flush() {
	s.wg.Wait()
}

func generationOutcome(err error) string {
	if errors.Is(err, ErrGenerationTimeout) {
		return "timeout"
	}
	return "error"
}

func artifactResponse(a cache.Artifact, cacheState string) *Response {
	return &Response{
		Body:    a.Body,
		Status:  a.Status,
		Headers: a.Headers,
		Cache:   cacheState,
	}
}

func placeholderResponse(rt *route) *Response {
	status := rt.def.PlaceholderStatus
	if status == 0 {
		status = 202
	}
	return &Response{
		Body:   rt.def.Placeholder,
		Status: status,
		Cache:  "placeholder",
	}
}
