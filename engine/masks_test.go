package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pthm-cable/particles/systems"
)

func TestMaskCacheCloseStopsLoads(t *testing.T) {
	var started atomic.Int32
	load := func(ctx context.Context, url string) (*systems.Mask, error) {
		started.Add(1)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c := NewMaskCache(quiet, load)

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				c.Get(fmt.Sprintf("mask-%d-%d", g, i))
			}
		}()
	}
	c.Close()
	wg.Wait()

	before := started.Load()
	if m := c.Get("after-close"); m != nil {
		t.Error("Get after Close returned a mask")
	}
	c.Wait()
	if got := started.Load(); got != before {
		t.Errorf("loads started after Close: %d", got-before)
	}
	if n := c.Pending(); n != 0 {
		t.Errorf("pending = %d after Close", n)
	}
}
