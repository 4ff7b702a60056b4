package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/staleserve/staleserve/pkg/cache"
	"github.com/staleserve/staleserve/pkg/events"
	"github.com/staleserve/staleserve/pkg/routepath"
	"github.com/staleserve/staleserve/pkg/router"
)

// route pairs a compiled pattern with its definition and the set of
// prerendered cache keys.
type route struct {
	pattern     *router.Pattern
	def         RouteDef
	prerendered map[cache.Key]bool
}

func (rt *route) isPrerendered(key cache.Key) bool {
	return rt.prerendered[key]
}

// Engine resolves request paths and serves artifacts under the
// revalidation policy. Construct one at process start with New and
// share it across request handlers; all methods are safe for
// concurrent use.
type Engine struct {
	table  *router.Table
	routes map[string]*route
	cache  *cache.Cache
	store  cache.Store
	sched  *scheduler
	logger *slog.Logger
}

// New compiles the route definitions into a table and wires up the
// engine. Malformed patterns, duplicate routes, and defs without a
// render function are build-time errors that must stop startup.
func New(defs []RouteDef, cfg *Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	patterns := make([]*router.Pattern, 0, len(defs))
	routes := make(map[string]*route, len(defs))

	for _, def := range defs {
		if def.Render == nil {
			return nil, fmt.Errorf("engine: route %s has no render function", def.Pattern)
		}

		p, err := router.Parse(def.Pattern)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)

		rt := &route{
			pattern:     p,
			def:         def,
			prerendered: make(map[cache.Key]bool, len(def.Prerender)),
		}
		rt.def.Pattern = p.ID()
		for _, set := range def.Prerender {
			rt.prerendered[cache.NewKey(p.ID(), set.Params, set.Wildcards)] = true
		}
		routes[p.ID()] = rt
	}

	table, err := router.Build(patterns)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		table:  table,
		routes: routes,
		cache:  cfg.Cache,
		store:  cfg.Store,
		sched:  newScheduler(cfg),
		logger: cfg.Logger,
	}
	e.logger.Info("route table built", "routes", table.Len())
	return e, nil
}

// HandleRequest resolves the request path and serves an artifact.
// Returns ErrNotFound, ErrGenerationTimeout, or a *GenerationError for
// the external HTTP layer to translate.
func (e *Engine) HandleRequest(ctx context.Context, req *Request) (*Response, error) {
	canonical, err := routepath.Canonicalize(req.Path)
	if err != nil {
		// A path we refuse to canonicalize cannot name a route.
		return nil, ErrNotFound
	}

	ctx, span := e.sched.tracing.startServe(ctx, canonical.Path)

	match, ok := e.table.ResolveSegments(canonical.Segments)
	if !ok {
		endSpan(span, ErrNotFound)
		return nil, ErrNotFound
	}

	rt := e.routes[match.Pattern.ID()]
	key := cache.NewKey(match.Pattern.ID(), match.Params, match.Wildcards)

	resp, err := e.sched.serve(ctx, rt, key, &RenderRequest{
		Route:     match.Pattern.ID(),
		Path:      canonical.Path,
		Params:    match.Params,
		Wildcards: match.Wildcards,
		Query:     req.Query,
	})
	endSpan(span, err)
	return resp, err
}

// Invalidate removes the cached artifact for one route and parameter
// binding, forcing the next request to regenerate it. The persistent
// store entry, if any, is deleted as well. Returns ErrNotFound if the
// route identity is unknown.
func (e *Engine) Invalidate(ctx context.Context, routeID string, set ParamSet) error {
	rt, ok := e.routes[routeID]
	if !ok {
		return ErrNotFound
	}

	key := cache.NewKey(rt.pattern.ID(), set.Params, set.Wildcards)
	e.cache.Invalidate(key)

	if e.store != nil {
		// Drain in-flight write-throughs for this key first, so one
		// cannot land after the delete and resurrect the entry.
		e.sched.waitStoreWrites(key)
		if err := e.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("engine: invalidate %s: %w", key, err)
		}
	}

	e.sched.publish(events.Event{
		Type:  events.TypeInvalidated,
		Route: rt.pattern.ID(),
		Key:   key.String(),
	})
	e.logger.Info("invalidated", "route", rt.pattern.ID(), "key", key)
	return nil
}

// Warmup eagerly generates every prerendered parameter set that has no
// cache entry yet. Routes without parameters count as one prerendered
// set. Generation failures abort the warmup; startup should treat them
// as fatal or retry.
func (e *Engine) Warmup(ctx context.Context) error {
	for _, rt := range e.routes {
		sets := rt.def.Prerender
		if !rt.pattern.HasParams() {
			sets = []ParamSet{{}}
		}
		for _, set := range sets {
			key := cache.NewKey(rt.pattern.ID(), set.Params, set.Wildcards)
			if _, ok := e.sched.lookup(ctx, key); ok {
				continue
			}
			req := &RenderRequest{
				Route:     rt.pattern.ID(),
				Path:      prerenderPath(rt.pattern, set),
				Params:    set.Params,
				Wildcards: set.Wildcards,
			}
			if _, err := e.sched.generateBlocking(ctx, rt, key, req); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush waits for in-flight background regenerations and store writes.
// Call during graceful shutdown, after the HTTP layer stops accepting
// requests.
func (e *Engine) Flush() {
	e.sched.flush()
}

// Cache returns the engine's artifact cache.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Table returns the engine's route table.
func (e *Engine) Table() *router.Table { return e.table }

// prerenderPath reconstructs the concrete path for a prerendered
// parameter set, for the render request's Path field.
func prerenderPath(p *router.Pattern, set ParamSet) string {
	path := ""
	for _, seg := range p.Segments() {
		switch seg.Kind {
		case router.SegmentStatic:
			path += "/" + seg.Name
		case router.SegmentDynamic:
			path += "/" + set.Params[seg.Name]
		default:
			for _, part := range set.Wildcards[seg.Name] {
				path += "/" + part
			}
		}
	}
	if path == "" {
		return "/"
	}
	return path
}
