package driver

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type pacedDriver struct {
	next    Driver
	limiter *rate.Limiter
}

// WithPacing spaces calls to d at no more than rps per second with the given
// burst. Waiting honours the request context; nothing is retried. A
// non-positive rps returns d unchanged.
func WithPacing(d Driver, rps float64, burst int) Driver {
	if d == nil || rps <= 0 {
		return d
	}
	if burst < 1 {
		burst = 1
	}
	return &pacedDriver{next: d, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p *pacedDriver) Name() string {
	return p.next.Name()
}

func (p *pacedDriver) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline cannot be met; report that as
		// the deadline being exceeded.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			err = context.DeadlineExceeded
		}
		return nil, fmt.Errorf("%s: wait for send slot: %w", p.next.Name(), err)
	}
	return p.next.Complete(ctx, req)
}
