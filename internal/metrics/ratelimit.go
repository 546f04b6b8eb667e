package metrics

import (
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// RateLimitObserver feeds limiter decisions into telemetry and logs store
// failures.
type RateLimitObserver struct {
	Backend string
	Logger  *logging.Logger
}

// Decision implements ratelimit.Observer.
func (o *RateLimitObserver) Decision(identifier string, admitted bool) {
	RecordRateLimitDecision(admitted)
	if !admitted && o != nil && o.Logger != nil {
		o.Logger.Debug("Rate limit exceeded", zap.String("client", identifier))
	}
}

// StoreError implements ratelimit.Observer.
func (o *RateLimitObserver) StoreError(identifier string, err error) {
	backend := "memory"
	if o != nil && o.Backend != "" {
		backend = o.Backend
	}
	RecordRateLimitStoreError(backend)
	if o != nil && o.Logger != nil {
		o.Logger.Warn("Rate limit store failed, admitting request",
			zap.String("client", identifier),
			zap.String("backend", backend),
			zap.Error(err))
	}
}
