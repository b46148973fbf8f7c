package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
)

var ErrOutOfStock = errors.New("out of stock")

// Catalog resolves item ids for the cart.
type Catalog interface {
	Lookup(id string) (catalog.Item, error)
}

// Cart is the shopper's in-memory cart. Lines keep insertion order and are
// unique per item id; every line satisfies 0 < Quantity <= Item.Stock.
type Cart struct {
	catalog Catalog
	notify  events.Notifier

	mu    sync.Mutex
	lines []*Line
}

func New(c Catalog, notify events.Notifier) *Cart {
	if notify == nil {
		notify = events.Discard{}
	}
	return &Cart{catalog: c, notify: notify}
}

// Add puts one more unit of id in the cart. Reaching the stock ceiling is a
// silent no-op; a brand new line for an item with no stock fails with
// ErrOutOfStock.
func (c *Cart) Add(id string) error {
	item, err := c.catalog.Lookup(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if l := c.find(id); l != nil {
		l.Item.Stock = item.Stock
		if l.Quantity < item.Stock {
			l.Quantity++
		}
	} else {
		if !item.InStock() {
			c.mu.Unlock()
			return fmt.Errorf("add %s: %w", id, ErrOutOfStock)
		}
		c.lines = append(c.lines, &Line{ItemID: id, Quantity: 1, Item: item})
	}
	totals := c.totalsLocked()
	c.mu.Unlock()

	c.notify.Notify(events.CartChanged, totals)
	return nil
}

// Remove takes one unit of id out of the cart, dropping the line at zero.
// Removing an absent item changes nothing.
func (c *Cart) Remove(id string) {
	c.mu.Lock()
	for i, l := range c.lines {
		if l.ItemID != id {
			continue
		}
		if l.Quantity > 1 {
			l.Quantity--
		} else {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		break
	}
	totals := c.totalsLocked()
	c.mu.Unlock()

	c.notify.Notify(events.CartChanged, totals)
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	totals := c.totalsLocked()
	c.mu.Unlock()

	c.notify.Notify(events.CartChanged, totals)
}

// Reconcile re-checks every line against the catalog after a reload:
// quantities are clamped to the current stock and lines whose item is gone or
// sold out are dropped. It signals only when something changed.
func (c *Cart) Reconcile() bool {
	c.mu.Lock()
	changed := false
	kept := c.lines[:0]
	for _, l := range c.lines {
		item, err := c.catalog.Lookup(l.ItemID)
		if err != nil || !item.InStock() {
			changed = true
			continue
		}
		if l.Quantity > item.Stock {
			l.Quantity = item.Stock
			changed = true
		}
		l.Item.Stock = item.Stock
		kept = append(kept, l)
	}
	for i := len(kept); i < len(c.lines); i++ {
		c.lines[i] = nil
	}
	c.lines = kept
	totals := c.totalsLocked()
	c.mu.Unlock()

	if changed {
		c.notify.Notify(events.CartChanged, totals)
	}
	return changed
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cart) Quantity(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l := c.find(id); l != nil {
		return l.Quantity
	}
	return 0
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalsLocked()
}

func (c *Cart) totalsLocked() Totals {
	return Summarize(c.snapshotLocked())
}

func (c *Cart) snapshotLocked() []Line {
	out := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, *l)
	}
	return out
}

func (c *Cart) find(id string) *Line {
	for _, l := range c.lines {
		if l.ItemID == id {
			return l
		}
	}
	return nil
}
