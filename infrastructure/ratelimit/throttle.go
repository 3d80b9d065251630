package ratelimit

import (
	"net/http"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/spooky-finn/go-broker-bridge/domain"
)

// Throttle wraps the REST order boundary with the pacing and retry
// policy both exchanges expect: wait for a rate-limit token before
// every call, and on a 429 back off and retry up to a fixed ceiling.
// Exhaustion surfaces as a warning diagnostic and a failed call, never
// as a dropped stream.
type Throttle struct {
	bucket      *TokenBucket
	maxAttempts int
	diag        domain.DiagnosticSink
}

func NewThrottle(bucket *TokenBucket, maxAttempts int, diag domain.DiagnosticSink) *Throttle {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Throttle{bucket: bucket, maxAttempts: maxAttempts, diag: diag}
}

// Do runs call, retrying while it reports HTTP 429.
func (t *Throttle) Do(call func() (status int, err error)) error {
	bo := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    10 * time.Second,
		Jitter: true,
	}

	for attempt := 1; ; attempt++ {
		if !t.bucket.Allow(time.Now()) {
			t.diag.Warnf("rest.ratelimit",
				"request paced by local rate limit, waiting for a slot")
			t.bucket.Wait()
		}

		status, err := call()
		if err != nil {
			return err
		}
		if status != http.StatusTooManyRequests {
			return nil
		}
		if attempt >= t.maxAttempts {
			t.diag.Warnf("rest.ratelimit", "request throttled %d times, giving up", attempt)
			return errors.Errorf("rate limited after %d attempts", attempt)
		}
		time.Sleep(bo.Duration())
	}
}
