package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pthm-cable/particles/systems"
)

// MaskLoader resolves a mask reference into a decoded mask.
type MaskLoader func(ctx context.Context, url string) (*systems.Mask, error)

type maskEntry struct {
	mask *systems.Mask
	err  error
	done bool
}

// MaskCache loads mask images in the background and shares them by URL.
// A failed URL stays failed until the cache is closed; layers pointing at
// it behave as if they had no mask.
type MaskCache struct {
	log  *slog.Logger
	load MaskLoader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*maskEntry
}

// NewMaskCache creates a cache using load to fetch masks.
func NewMaskCache(log *slog.Logger, load MaskLoader) *MaskCache {
	if load == nil {
		load = systems.LoadMask
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MaskCache{
		log:     log,
		load:    load,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*maskEntry),
	}
}

// Get returns the mask for url, or nil while it is loading or after it
// failed. The first request for a URL starts its load.
func (c *MaskCache) Get(url string) *systems.Mask {
	if url == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[url]; ok {
		return e.mask
	}
	if c.ctx.Err() != nil {
		return nil
	}
	e := &maskEntry{}
	c.entries[url] = e
	c.wg.Add(1)
	go c.fetch(url, e)
	return nil
}

func (c *MaskCache) fetch(url string, e *maskEntry) {
	defer c.wg.Done()
	m, err := c.load(c.ctx, url)

	c.mu.Lock()
	e.done = true
	if err != nil {
		e.err = err
	} else {
		e.mask = m
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("mask load failed", "url", shortURL(url), "error", err)
		return
	}
	c.log.Debug("mask loaded", "url", shortURL(url), "w", m.W, "h", m.H)
}

// Err returns the load error for url, if its load failed.
func (c *MaskCache) Err(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[url]; ok {
		return e.err
	}
	return nil
}

// Pending returns the number of loads still in flight.
func (c *MaskCache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if !e.done {
			n++
		}
	}
	return n
}

// Wait blocks until every started load has finished.
func (c *MaskCache) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight loads and waits for them to return. Get starts
// no new loads afterwards.
func (c *MaskCache) Close() {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}

// shortURL keeps data URIs out of the logs.
func shortURL(url string) string {
	if len(url) > 64 {
		return url[:64] + "..."
	}
	return url
}
