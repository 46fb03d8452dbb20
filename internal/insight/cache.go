package insight

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrSuperseded is returned when a load resolves after the active test id has
// moved on. The result is discarded; there is no true abort, only
// check-then-discard at resolution time.
var ErrSuperseded = errors.New("aggregation superseded by newer test selection")

// Loader is the per-test insight cache. Each test id gets a single slot,
// overwritten wholesale on every successful aggregation and read-only for
// consumers. A single-flight guard prevents duplicate concurrent loads for
// the same test id; the triggering view may ask many times before the first
// fetch resolves.
type Loader struct {
	svc *Service

	mu      sync.Mutex
	active  string
	slots   map[string]*Aggregation
	pending map[string]chan struct{}
}

func NewLoader(svc *Service) *Loader {
	return &Loader{
		svc:     svc,
		slots:   map[string]*Aggregation{},
		pending: map[string]chan struct{}{},
	}
}

// SetActive records the test the viewer is on. In-flight loads for any other
// test are discarded when they resolve; returning to a test before its load
// resolves keeps the result.
func (l *Loader) SetActive(testID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = testID
}

// Get returns the cached aggregation for a test id, if one is loaded.
func (l *Loader) Get(testID string) (*Aggregation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	agg, ok := l.slots[testID]
	return agg, ok
}

// Invalidate drops the slot so the next Load refetches. Used after narrative
// regeneration, which is fire-and-forget followed by a full reload.
func (l *Loader) Invalidate(testID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.slots, testID)
}

// Load returns the cached aggregation or runs one. Concurrent callers for
// the same test id share a single aggregation run. A run that resolves after
// SetActive moved to a different test returns ErrSuperseded and leaves the
// slot unset so a retry stays possible.
func (l *Loader) Load(ctx context.Context, testID string) (*Aggregation, error) {
	for {
		l.mu.Lock()
		if agg, ok := l.slots[testID]; ok {
			l.mu.Unlock()
			return agg, nil
		}
		if done, ok := l.pending[testID]; ok {
			l.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		done := make(chan struct{})
		l.pending[testID] = done
		l.mu.Unlock()

		agg, err := l.svc.Aggregate(ctx, testID)

		l.mu.Lock()
		delete(l.pending, testID)
		close(done)
		if err != nil {
			// Leave the slot unset so the caller can retry.
			l.mu.Unlock()
			return nil, err
		}
		// Compare against the active test at resolution time, not at start:
		// navigating away and back keeps the result. Callers that never set
		// an active test (the HTTP API serves many tests at once) are exempt.
		if l.active != "" && l.active != testID {
			l.mu.Unlock()
			log.Printf("insight load_discarded test=%s reason=superseded", testID)
			return nil, ErrSuperseded
		}
		l.slots[testID] = agg
		l.mu.Unlock()
		return agg, nil
	}
}
