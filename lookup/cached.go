package lookup

import (
	"context"
	"errors"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/singleflight"
)

// Cached wraps a Service with a result cache and coalesces concurrent
// lookups of the same key into one backend request.
type Cached struct {
	svc     Service
	cache   *Cache // may be nil
	source  string
	timeout time.Duration
	group   singleflight.Group
	log     commonlog.Logger

	base context.Context
	stop context.CancelFunc
}

// NewCached wraps svc. Backend requests are bounded by timeout (zero means
// unbounded) and are cancelled by Close. A nil cache only coalesces.
func NewCached(svc Service, cache *Cache, timeout time.Duration) *Cached {
	base, stop := context.WithCancel(context.Background())
	return &Cached{
		svc:     svc,
		cache:   cache,
		source:  sourceName(svc),
		timeout: timeout,
		log:     commonlog.GetLogger("yulsp.lookup"),
		base:    base,
		stop:    stop,
	}
}

func sourceName(svc Service) string {
	switch svc.(type) {
	case *Dune:
		return "dune"
	case Disabled:
		return "disabled"
	}
	return "custom"
}

// Close cancels in-flight backend requests. It does not close the cache.
func (c *Cached) Close() {
	c.stop()
}

// FunctionSignature implements Service.
func (c *Cached) FunctionSignature(ctx context.Context, selector string) (string, error) {
	return c.get(ctx, OpFunctionSignature, selector, c.svc.FunctionSignature)
}

// ContractName implements Service.
func (c *Cached) ContractName(ctx context.Context, address string) (string, error) {
	return c.get(ctx, OpContractName, address, c.svc.ContractName)
}

func (c *Cached) get(ctx context.Context, op, raw string, fetch func(context.Context, string) (string, error)) (string, error) {
	key := NormalizeKey(raw)

	if c.cache != nil {
		e, ok, err := c.cache.Get(ctx, op, key)
		switch {
		case err != nil:
			c.log.Warning("cache read failed", "op", op, "key", key, "error", err)
		case ok && e.NotFound:
			return "", &Error{Op: op, Key: raw, Err: ErrNotFound}
		case ok:
			return e.Value, nil
		}
	}

	// The shared fetch runs on the Cached lifetime context, so one caller
	// giving up does not fail the others waiting on it.
	ch := c.group.DoChan(op+":"+key, func() (any, error) {
		fctx := c.base
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.timeout)
			defer cancel()
		}
		v, err := fetch(fctx, key)
		c.store(op, key, v, err)
		return v, err
	})

	select {
	case <-ctx.Done():
		return "", wrapError(op, raw, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", wrapError(op, raw, res.Err)
		}
		return res.Val.(string), nil
	}
}

// store records successful and not-found results. Other failures are not
// cached.
func (c *Cached) store(op, key, value string, err error) {
	if c.cache == nil {
		return
	}
	var e Entry
	switch {
	case err == nil:
		e = Entry{Value: value, Source: c.source}
	case errors.Is(err, ErrNotFound):
		e = Entry{NotFound: true, Source: c.source}
	default:
		return
	}
	if perr := c.cache.Put(c.base, op, key, e); perr != nil {
		c.log.Warning("cache write failed", "op", op, "key", key, "error", perr)
	}
}
