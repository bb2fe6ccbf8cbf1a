package services

import (
	"sync"
	"time"

	"coffee-telegram/models"
)

type SessionState string

const (
	StateIdle                 SessionState = "idle"
	StateChoosingCategory     SessionState = "choosing_category"
	StateChoosingProduct      SessionState = "choosing_product"
	StateChoosingQuantity     SessionState = "choosing_quantity"
	StateAwaitingQuantityText SessionState = "awaiting_quantity_text"
	StateCheckout             SessionState = "checkout"
)

// Session is the conversation state of one barista (or customer) keyed by Telegram user id.
type Session struct {
	UserID          int64
	State           SessionState
	Order           *models.Order
	Category        *models.Category
	SelectedProduct *models.Product
	Customer        *models.Customer // set when a customer QR is scanned
	UpdatedAt       time.Time
}

func (s *Session) reset() {
	s.State = StateIdle
	s.Order = nil
	s.Category = nil
	s.SelectedProduct = nil
	s.Customer = nil
}

func (s *Session) awaitingQuantity(productID int64) bool {
	if s.SelectedProduct == nil || s.SelectedProduct.ID != productID {
		return false
	}
	return s.State == StateChoosingQuantity || s.State == StateAwaitingQuantityText
}

// pendingOrder returns the session's order, creating a pending one when absent.
// An already attached customer is linked to the new order.
func (s *Session) pendingOrder() *models.Order {
	if s.Order == nil {
		s.Order = models.NewPendingOrder(s.UserID)
		if s.Customer != nil {
			id := s.Customer.ID
			s.Order.CustomerID = &id
		}
	}
	return s.Order
}

// SessionStore keeps per-user conversation state. Implementations must run Update
// callbacks for the same user one at a time.
type SessionStore interface {
	GetOrCreatePendingOrder(userID int64) *models.Order
	// AttachCustomer remembers c for the user's conversation and links it to the pending
	// order. It reports whether a pending order existed.
	// A different customer than the one attached before loses the previous allotment.
	AttachCustomer(userID int64, c *models.Customer) bool
	// Clear drops the conversation and reports whether it held a pending order.
	Clear(userID int64) bool
	Update(userID int64, fn func(s *Session) error) error
	Snapshot(userID int64) (Session, bool)
	Sweep(maxIdle time.Duration) int
}

type sessionEntry struct {
	mu      sync.Mutex
	dead    bool
	session Session
}

// MemorySessionStore is the single-process SessionStore.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[int64]*sessionEntry
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[int64]*sessionEntry),
		now:     time.Now,
	}
}

// lock returns the locked entry for userID, creating it if needed. Entries removed while
// we waited for their lock are skipped.
func (m *MemorySessionStore) lock(userID int64) *sessionEntry {
	for {
		m.mu.Lock()
		e, ok := m.entries[userID]
		if !ok {
			e = &sessionEntry{session: Session{UserID: userID, State: StateIdle, UpdatedAt: m.now()}}
			m.entries[userID] = e
		}
		m.mu.Unlock()

		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

func (m *MemorySessionStore) Update(userID int64, fn func(s *Session) error) error {
	e := m.lock(userID)
	defer e.mu.Unlock()
	err := fn(&e.session)
	e.session.UpdatedAt = m.now()
	return err
}

func (m *MemorySessionStore) GetOrCreatePendingOrder(userID int64) *models.Order {
	var o *models.Order
	_ = m.Update(userID, func(s *Session) error {
		o = s.pendingOrder()
		return nil
	})
	return o
}

func (m *MemorySessionStore) AttachCustomer(userID int64, c *models.Customer) bool {
	var hadOrder bool
	_ = m.Update(userID, func(s *Session) error {
		changed := s.Customer == nil || s.Customer.ID != c.ID
		s.Customer = c
		if s.Order != nil {
			id := c.ID
			s.Order.CustomerID = &id
			if changed {
				s.Order.FreeDrinks = 0
			}
			hadOrder = true
		}
		return nil
	})
	return hadOrder
}

func (m *MemorySessionStore) Clear(userID int64) bool {
	var hadOrder bool
	m.remove(userID, func(s *Session) bool {
		hadOrder = s.Order != nil
		return true
	})
	return hadOrder
}

// remove deletes the user's entry when cond holds for its session, checked under the entry lock.
func (m *MemorySessionStore) remove(userID int64, cond func(s *Session) bool) bool {
	m.mu.Lock()
	e, ok := m.entries[userID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead || !cond(&e.session) {
		return false
	}
	e.session.reset()
	e.dead = true
	m.mu.Lock()
	if m.entries[userID] == e {
		delete(m.entries, userID)
	}
	m.mu.Unlock()
	return true
}

// Snapshot returns a copy of the user's session; the order is deep-copied.
func (m *MemorySessionStore) Snapshot(userID int64) (Session, bool) {
	m.mu.Lock()
	e, ok := m.entries[userID]
	m.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	s.Order = cloneOrder(e.session.Order)
	return s, true
}

// Sweep drops sessions not updated within maxIdle and returns how many were removed.
func (m *MemorySessionStore) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	ids := make([]int64, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var removed int
	for _, id := range ids {
		if m.remove(id, func(s *Session) bool { return s.UpdatedAt.Before(cutoff) }) {
			removed++
		}
	}
	return removed
}

func cloneOrder(o *models.Order) *models.Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	if o.CustomerID != nil {
		id := *o.CustomerID
		c.CustomerID = &id
	}
	if o.CreatedBy != nil {
		id := *o.CreatedBy
		c.CreatedBy = &id
	}
	return &c
}
