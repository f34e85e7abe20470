// Package store holds the single in-memory snapshot of ticker, orders, positions and
// connection state. It is the only writer of that state; readers get copies.
package store

import (
	"sync"
	"sync/atomic"

	"tradedash/internal/models"
	"tradedash/internal/normalize"
)

// DisconnectedMessage is the error shown after the push channel drops.
const DisconnectedMessage = "Disconnected from server"

type Category int

const (
	CategoryTicker Category = iota
	CategoryOrders
	CategoryPositions
	categoryCount
)

func (c Category) String() string {
	switch c {
	case CategoryTicker:
		return "ticker"
	case CategoryOrders:
		return "orders"
	case CategoryPositions:
		return "positions"
	}
	return "unknown"
}

type State struct {
	Ticker      *models.Ticker    `json:"ticker"`
	Orders      []models.Order    `json:"orders"`
	Positions   []models.Position `json:"positions"`
	IsConnected bool              `json:"isConnected"`
	IsLoading   bool              `json:"isLoading"`
	Error       *string           `json:"error"`
	Version     uint64            `json:"version"`
}

type Store struct {
	mu         sync.RWMutex
	state      State
	applied    [categoryCount]uint64
	seq        atomic.Uint64
	normalizer *normalize.Normalizer
}

func New(normalizer *normalize.Normalizer) *Store {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	return &Store{
		state: State{
			Orders:    []models.Order{},
			Positions: []models.Position{},
		},
		normalizer: normalizer,
	}
}

// Stamp hands out the next update token. Tokens grow monotonically; an update applied
// with a token older than the last applied one for its category is discarded.
func (s *Store) Stamp() uint64 {
	return s.seq.Add(1)
}

func (s *Store) ApplyTicker(t models.Ticker) bool {
	return s.ApplyTickerAt(s.Stamp(), t)
}

func (s *Store) ApplyTickerAt(seq uint64, t models.Ticker) bool {
	return s.update(CategoryTicker, seq, func(st *State) {
		st.Ticker = &t
	})
}

func (s *Store) ApplyOrders(raw []byte) bool {
	return s.ApplyOrdersAt(s.Stamp(), raw)
}

func (s *Store) ApplyOrdersAt(seq uint64, raw []byte) bool {
	return s.ReplaceOrdersAt(seq, s.normalizer.Orders(raw))
}

func (s *Store) ReplaceOrders(orders []models.Order) bool {
	return s.ReplaceOrdersAt(s.Stamp(), orders)
}

func (s *Store) ReplaceOrdersAt(seq uint64, orders []models.Order) bool {
	orders = cloneOrders(orders)
	return s.update(CategoryOrders, seq, func(st *State) {
		st.Orders = orders
	})
}

func (s *Store) ApplyPositions(raw []byte) bool {
	return s.ApplyPositionsAt(s.Stamp(), raw)
}

func (s *Store) ApplyPositionsAt(seq uint64, raw []byte) bool {
	return s.ReplacePositionsAt(seq, s.normalizer.Positions(raw))
}

func (s *Store) ReplacePositions(positions []models.Position) bool {
	return s.ReplacePositionsAt(s.Stamp(), positions)
}

func (s *Store) ReplacePositionsAt(seq uint64, positions []models.Position) bool {
	positions = clonePositions(positions)
	return s.update(CategoryPositions, seq, func(st *State) {
		st.Positions = positions
	})
}

// update replaces one category wholesale and clears the error banner.
func (s *Store) update(cat Category, seq uint64, apply func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.applied[cat] {
		return false
	}
	s.applied[cat] = seq

	apply(&s.state)
	s.state.Error = nil
	s.state.Version++
	return true
}

func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsConnected = connected
	if connected {
		s.state.Error = nil
	} else {
		s.state.Error = strPtr(DisconnectedMessage)
	}
	s.state.Version++
}

// SetError sets or clears (nil) the error message without touching the connection flag.
func (s *Store) SetError(msg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg == nil {
		s.state.Error = nil
	} else {
		s.state.Error = strPtr(*msg)
	}
	s.state.Version++
}

// TransportError records a push-channel failure: the banner is set and the
// connection flag cleared.
func (s *Store) TransportError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Error = strPtr(msg)
	s.state.IsConnected = false
	s.state.Version++
}

func (s *Store) ClearError() {
	s.SetError(nil)
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsLoading = loading
	s.state.Version++
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	if s.state.Ticker != nil {
		t := *s.state.Ticker
		out.Ticker = &t
	}
	if s.state.Error != nil {
		out.Error = strPtr(*s.state.Error)
	}
	out.Orders = cloneOrders(s.state.Orders)
	out.Positions = clonePositions(s.state.Positions)
	return out
}

// Applied reports the token of the last update accepted for a category.
func (s *Store) Applied(cat Category) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied[cat]
}

func strPtr(s string) *string {
	return &s
}

func cloneOrders(in []models.Order) []models.Order {
	out := make([]models.Order, len(in))
	for i, o := range in {
		if o.CreatedAt != nil {
			o.CreatedAt = models.NewEpochMillis(o.CreatedAt.Float())
		}
		if o.UpdatedAt != nil {
			o.UpdatedAt = models.NewEpochMillis(o.UpdatedAt.Float())
		}
		out[i] = o
	}
	return out
}

func clonePositions(in []models.Position) []models.Position {
	out := make([]models.Position, len(in))
	for i, p := range in {
		if p.CreatedAt != nil {
			p.CreatedAt = models.NewEpochMillis(p.CreatedAt.Float())
		}
		if p.UpdatedAt != nil {
			p.UpdatedAt = models.NewEpochMillis(p.UpdatedAt.Float())
		}
		out[i] = p
	}
	return out
}
