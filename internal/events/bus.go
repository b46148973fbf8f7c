package events

import "sync"

// Signal names a change the View Layer can subscribe to.
type Signal string

const (
	CatalogChanged    Signal = "catalog.changed"
	CartChanged       Signal = "cart.changed"
	OrderStateChanged Signal = "order.state_changed"
	AuthChanged       Signal = "auth.changed"
)

// Notifier is what core components emit signals through.
type Notifier interface {
	Notify(sig Signal, payload any)
}

// Handler receives the payload published with a signal.
type Handler func(payload any)

// Bus is a synchronous in-process fan-out. Handlers run on the notifying
// goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Signal][]subscription
}

type subscription struct {
	id int
	fn Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Signal][]subscription)}
}

// Subscribe registers fn for sig and returns a func that removes it.
func (b *Bus) Subscribe(sig Signal, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[sig] = append(b.subs[sig], subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[sig]
		for i, s := range list {
			if s.id == id {
				b.subs[sig] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Notify(sig Signal, payload any) {
	b.mu.RLock()
	list := append([]subscription(nil), b.subs[sig]...)
	b.mu.RUnlock()

	for _, s := range list {
		s.fn(payload)
	}
}

// Discard drops every signal.
type Discard struct{}

func (Discard) Notify(Signal, any) {}
