package helpers

import (
	"testing"
	"time"

	"github.com/kode4food/sequin/internal/events"
	"github.com/kode4food/sequin/pkg/api"
)

// WaitForEvent reads from consumer until an event of the given type arrives
// and returns it. The test fails if none arrives before timeout
func WaitForEvent(
	t *testing.T, c events.Consumer, typ api.EventType, timeout time.Duration,
) *api.RunEvent {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-c.Receive():
			if !ok {
				t.Fatalf("consumer closed waiting for %s", typ)
			}
			if ev != nil && ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", typ)
		}
	}
}
