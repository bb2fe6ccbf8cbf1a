package services

import (
	"sync"
	"testing"
	"time"

	"coffee-telegram/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore_GetOrCreatePendingOrder(t *testing.T) {
	store := NewMemorySessionStore()

	o1 := store.GetOrCreatePendingOrder(10)
	o2 := store.GetOrCreatePendingOrder(10)
	other := store.GetOrCreatePendingOrder(11)

	require.NotNil(t, o1)
	assert.Same(t, o1, o2)
	assert.NotSame(t, o1, other)
	assert.Equal(t, models.OrderStatusPending, o1.Status)
	require.NotNil(t, o1.CreatedBy)
	assert.Equal(t, int64(10), *o1.CreatedBy)
}

func TestMemorySessionStore_AttachCustomer(t *testing.T) {
	store := NewMemorySessionStore()
	c := &models.Customer{ID: 5, TgUserID: 500}

	assert.False(t, store.AttachCustomer(10, c), "no pending order yet")
	o := store.GetOrCreatePendingOrder(10)
	require.NotNil(t, o.CustomerID, "customer scanned earlier is linked to the new order")
	assert.Equal(t, int64(5), *o.CustomerID)

	assert.True(t, store.AttachCustomer(10, &models.Customer{ID: 6}))
	assert.Equal(t, int64(6), *o.CustomerID)
}

func TestMemorySessionStore_Clear(t *testing.T) {
	store := NewMemorySessionStore()
	store.GetOrCreatePendingOrder(10)
	store.AttachCustomer(10, &models.Customer{ID: 5})
	_ = store.Update(10, func(s *Session) error {
		s.State = StateAwaitingQuantityText
		s.SelectedProduct = &models.Product{ID: 1}
		return nil
	})

	assert.True(t, store.Clear(10))
	_, ok := store.Snapshot(10)
	assert.False(t, ok)

	o := store.GetOrCreatePendingOrder(10)
	assert.Nil(t, o.CustomerID)
	assert.Empty(t, o.Items)

	assert.False(t, store.Clear(999))
	store.AttachCustomer(11, &models.Customer{ID: 5})
	assert.False(t, store.Clear(11), "customer only, no order")
}

func TestMemorySessionStore_AttachOtherCustomerDropsAllotment(t *testing.T) {
	store := NewMemorySessionStore()
	store.AttachCustomer(10, &models.Customer{ID: 5})
	store.GetOrCreatePendingOrder(10).FreeDrinks = 2

	store.AttachCustomer(10, &models.Customer{ID: 5})
	snap, _ := store.Snapshot(10)
	assert.Equal(t, 2, snap.Order.FreeDrinks, "same customer keeps the allotment")

	store.AttachCustomer(10, &models.Customer{ID: 6})
	snap, _ = store.Snapshot(10)
	assert.Equal(t, 0, snap.Order.FreeDrinks)
	assert.Equal(t, int64(6), *snap.Order.CustomerID)
}

func TestMemorySessionStore_ConcurrentUpsertsDoNotLoseUpdates(t *testing.T) {
	store := NewMemorySessionStore()
	p := &models.Product{ID: 1, Name: "Espresso", CategoryName: "Coffee", Price: decimal.NewFromInt(20)}

	const workers = 64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = store.Update(10, func(s *Session) error {
				_, err := s.pendingOrder().AddItem(p, 1)
				return err
			})
		}()
	}
	wg.Wait()

	snap, ok := store.Snapshot(10)
	require.True(t, ok)
	require.Len(t, snap.Order.Items, 1)
	assert.Equal(t, workers, snap.Order.Items[0].Quantity)
}

func TestMemorySessionStore_SnapshotIsCopy(t *testing.T) {
	store := NewMemorySessionStore()
	p := &models.Product{ID: 1, Price: decimal.NewFromInt(20)}
	_ = store.Update(10, func(s *Session) error {
		_, err := s.pendingOrder().AddItem(p, 1)
		return err
	})

	snap, _ := store.Snapshot(10)
	snap.Order.Items[0].Quantity = 99

	again, _ := store.Snapshot(10)
	assert.Equal(t, 1, again.Order.Items[0].Quantity)
}

func TestMemorySessionStore_Sweep(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.GetOrCreatePendingOrder(1)
	now = now.Add(3 * time.Hour)
	store.GetOrCreatePendingOrder(2)

	removed := store.Sweep(2 * time.Hour)
	assert.Equal(t, 1, removed)
	_, ok := store.Snapshot(1)
	assert.False(t, ok)
	_, ok = store.Snapshot(2)
	assert.True(t, ok)
}
