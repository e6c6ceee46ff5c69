package crawl

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces navigations by a jittered delay. A single Pacer is shared by
// every worker of a run, so the rate budget holds regardless of concurrency.
//
// The limiter refills one token per nanosecond. Each navigation reserves as
// many tokens as the gap drawn after the previous one, so the jitter rides
// on the limiter's clock instead of a fixed rate.
type Pacer struct {
	base    time.Duration
	limiter *rate.Limiter

	mu   sync.Mutex
	rng  *rand.Rand
	next time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(base time.Duration, seed int64) *Pacer {
	burst := 1
	if base > 0 {
		burst = int(base+base/2) + 1
	}
	return &Pacer{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(time.Second), burst),
		rng:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Delay draws the next delay: the base value plus or minus up to 50%.
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delay()
}

func (p *Pacer) delay() time.Duration {
	if p.base <= 0 {
		return 0
	}
	half := int64(p.base / 2)
	return p.base - time.Duration(half) + time.Duration(p.rng.Int63n(2*half+1))
}

// Wait reserves the next navigation slot and sleeps until it opens. Only
// the reservation is held under the lock; the sleep itself is not.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := p.now()
	gap := p.next
	p.next = p.delay()

	// Tokens beyond the gap mean the previous slot is long past. Spend them
	// all so that idle time does not bank a burst of back to back slots.
	n := int(gap)
	if idle := p.limiter.TokensAt(now); idle > float64(gap) {
		n = int(idle)
	}
	r := p.limiter.ReserveN(now, n)
	p.mu.Unlock()

	if !r.OK() {
		return errors.New("navigation gap exceeds the pacer burst")
	}
	return p.sleep(ctx, r.DelayFrom(now))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
