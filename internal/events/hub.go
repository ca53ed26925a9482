// Package events distributes run events to any number of consumers
package events

import (
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/sequin/pkg/api"
)

type (
	// Hub fans run events out to its consumers through a caravan topic
	Hub struct {
		topic  topic.Topic[*api.RunEvent]
		prod   topic.Producer[*api.RunEvent]
		mu     sync.RWMutex
		closed bool
	}

	// Consumer receives run events published after it was created
	Consumer = topic.Consumer[*api.RunEvent]
)

// NewHub creates an open Hub
func NewHub() *Hub {
	t := caravan.NewTopic[*api.RunEvent]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish sends ev to every consumer. Events published after Close are
// dropped
func (h *Hub) Publish(ev *api.RunEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed || ev == nil {
		return
	}
	message.Send(h.prod, ev)
}

// NewConsumer creates a Consumer. The caller must Close it when done
func (h *Hub) NewConsumer() Consumer {
	return h.topic.NewConsumer()
}

// Close stops the Hub from accepting events
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	h.prod.Close()
}
