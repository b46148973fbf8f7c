package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apierr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
)

var ErrNotFound = errors.New("item not found")

// Source fetches the full item set.
type Source interface {
	ListCoins(ctx context.Context) ([]Item, error)
}

// Store holds the catalog as last fetched.
type Store struct {
	src    Source
	notify events.Notifier
	logger *zap.Logger

	sfg singleflight.Group

	mu    sync.RWMutex
	items []Item
	byID  map[string]int
}

func NewStore(src Source, notify events.Notifier, logger *zap.Logger) *Store {
	if notify == nil {
		notify = events.Discard{}
	}
	return &Store{
		src:    src,
		notify: notify,
		logger: logging.OrNop(logger),
		byID:   make(map[string]int),
	}
}

// Load replaces the catalog with a fresh fetch. On failure the previous
// contents stay in place. Concurrent calls share one fetch.
func (s *Store) Load(ctx context.Context) error {
	_, err, _ := s.sfg.Do("load", func() (any, error) {
		if err := s.load(ctx); err != nil {
			s.logger.Warn("catalog load failed, keeping previous catalog", zap.Error(err), zap.Int("items", s.Len()))
			return nil, err
		}
		s.logger.Debug("catalog loaded", zap.Int("items", s.Len()))
		s.notify.Notify(events.CatalogChanged, s.Len())
		return nil, nil
	})
	return err
}

func (s *Store) load(ctx context.Context) error {
	items, err := s.src.ListCoins(ctx)
	if err != nil {
		return err
	}
	byID, err := index(items)
	if err != nil {
		return apierr.Network("load catalog", err)
	}

	s.mu.Lock()
	s.items = items
	s.byID = byID
	s.mu.Unlock()
	return nil
}

func index(items []Item) (map[string]int, error) {
	byID := make(map[string]int, len(items))
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item %s", it.ID)
		}
		byID[it.ID] = i
	}
	return byID, nil
}

func (s *Store) Lookup(id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.items[i], nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of the catalog in server order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.items...)
}

// Filter yields the items matching c. The sequence reads the catalog as it
// was when Filter was called and can be ranged over any number of times.
func (s *Store) Filter(c Criterion) iter.Seq[Item] {
	snapshot := s.Items()
	return func(yield func(Item) bool) {
		for _, it := range snapshot {
			if !c.Match(it) {
				continue
			}
			if !yield(it) {
				return
			}
		}
	}
}

// Field is an item attribute a Criterion can match on.
type Field string

const (
	FieldAll     Field = ""
	FieldMetal   Field = "metal"
	FieldCountry Field = "country"
	FieldYear    Field = "year"
)

// Criterion is an exact-match predicate on a single field. The zero value
// matches everything.
type Criterion struct {
	Field Field
	Value string
}

func All() Criterion                 { return Criterion{} }
func ByMetal(metal string) Criterion { return Criterion{Field: FieldMetal, Value: metal} }

// ParseCriterion builds a criterion from a filter button value; "all" and ""
// select everything.
func ParseCriterion(field, value string) (Criterion, error) {
	if value == "" || value == "all" {
		return All(), nil
	}
	switch f := Field(field); f {
	case FieldMetal, FieldCountry:
		return Criterion{Field: f, Value: value}, nil
	case FieldYear:
		if _, err := strconv.Atoi(value); err != nil {
			return Criterion{}, fmt.Errorf("year filter %q: %w", value, err)
		}
		return Criterion{Field: f, Value: value}, nil
	default:
		return Criterion{}, fmt.Errorf("unknown filter field %q", field)
	}
}

func (c Criterion) Match(it Item) bool {
	switch c.Field {
	case FieldAll:
		return true
	case FieldMetal:
		return it.Metal == c.Value
	case FieldCountry:
		return it.Country == c.Value
	case FieldYear:
		return strconv.Itoa(it.Year) == c.Value
	default:
		return false
	}
}
