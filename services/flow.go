package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"coffee-telegram/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QRStartPrefix is the /start payload prefix carried by customer QR codes.
const QRStartPrefix = "qr_"

type SummaryLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Free      int
	Subtotal  decimal.Decimal
}

// OrderSummary is what the barista sees after every change to the pending order.
type OrderSummary struct {
	Lines         []SummaryLine
	Total         decimal.Decimal
	UsedFree      int
	FreeRemaining int
	Customer      *models.Customer
}

type FinalizeResult struct {
	Order      *models.Order
	Customer   *models.Customer // nil for anonymous orders
	Settlement Settlement
	Summary    OrderSummary
}

// OrderFlow is the barista ordering state machine:
// category -> product -> quantity -> (repeat) -> checkout -> optional QR -> finalize.
type OrderFlow struct {
	store       Store
	sessions    SessionStore
	notifier    RewardNotifier
	eligible    Eligibility
	coffeeLimit int

	customerLocks keyedMutex
}

func NewOrderFlow(store Store, sessions SessionStore, notifier RewardNotifier, coffeeLimit int, loyaltyCategory string) *OrderFlow {
	if loyaltyCategory == "" {
		loyaltyCategory = models.DefaultLoyaltyCategory
	}
	return &OrderFlow{
		store:       store,
		sessions:    sessions,
		notifier:    notifier,
		eligible:    LoyaltyCategory(loyaltyCategory),
		coffeeLimit: coffeeLimit,
	}
}

func (f *OrderFlow) CoffeeLimit() int { return f.coffeeLimit }

func (f *OrderFlow) CustomerByTgID(ctx context.Context, tgUserID int64) (*models.Customer, error) {
	return f.store.GetCustomerByTgID(ctx, tgUserID)
}

// SetNotifier replaces the reward notifier. Call before the flow handles traffic.
func (f *OrderFlow) SetNotifier(n RewardNotifier) { f.notifier = n }

// Register returns the customer for a Telegram user, creating it on first contact.
// barista promotes the user when set; roles are never demoted here.
func (f *OrderFlow) Register(ctx context.Context, tgUserID int64, username, firstName string, barista bool) (*models.Customer, bool, error) {
	c, err := f.store.GetCustomerByTgID(ctx, tgUserID)
	if err == nil {
		if barista && !c.IsBarista() {
			if err := f.store.SetCustomerRole(ctx, tgUserID, models.RoleBarista); err != nil {
				return nil, false, err
			}
			c.Role = models.RoleBarista
		}
		return c, false, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, false, err
	}
	role := models.RoleCustomer
	if barista {
		role = models.RoleBarista
	}
	c, err = models.NewCustomer(tgUserID, username, firstName, role)
	if err != nil {
		return nil, false, err
	}
	if err := f.store.CreateCustomer(ctx, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (f *OrderFlow) requireBarista(ctx context.Context, userID int64) error {
	c, err := f.store.GetCustomerByTgID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return ErrNotBarista
		}
		return err
	}
	if !c.IsBarista() {
		return ErrNotBarista
	}
	return nil
}

// Menu lists the categories and puts the conversation in category selection.
func (f *OrderFlow) Menu(ctx context.Context, userID int64) ([]models.Category, error) {
	if err := f.requireBarista(ctx, userID); err != nil {
		return nil, err
	}
	cats, err := f.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	_ = f.sessions.Update(userID, func(s *Session) error {
		s.State = StateChoosingCategory
		s.Category = nil
		s.SelectedProduct = nil
		return nil
	})
	return cats, nil
}

func (f *OrderFlow) SelectCategory(ctx context.Context, userID, categoryID int64) (*models.Category, []models.Product, error) {
	if err := f.requireBarista(ctx, userID); err != nil {
		return nil, nil, err
	}
	cat, err := f.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	products, err := f.store.ListProductsByCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	_ = f.sessions.Update(userID, func(s *Session) error {
		s.State = StateChoosingProduct
		s.Category = cat
		s.SelectedProduct = nil
		return nil
	})
	return cat, products, nil
}

func (f *OrderFlow) SelectProduct(ctx context.Context, userID, productID int64) (*models.Product, error) {
	return f.selectProduct(ctx, userID, productID, StateChoosingQuantity)
}

// AwaitQuantityText selects the product and waits for the quantity as a typed number.
func (f *OrderFlow) AwaitQuantityText(ctx context.Context, userID, productID int64) (*models.Product, error) {
	return f.selectProduct(ctx, userID, productID, StateAwaitingQuantityText)
}

func (f *OrderFlow) selectProduct(ctx context.Context, userID, productID int64, state SessionState) (*models.Product, error) {
	if err := f.requireBarista(ctx, userID); err != nil {
		return nil, err
	}
	p, err := f.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	_ = f.sessions.Update(userID, func(s *Session) error {
		s.State = state
		s.SelectedProduct = p
		return nil
	})
	return p, nil
}

// ParseQuantity parses a typed quantity. Anything but a positive integer is ErrInvalidQuantity.
func ParseQuantity(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}

// SetQuantity adds qty of the product to the user's pending order, creating the order on
// first use. On ErrInvalidQuantity the conversation stays in quantity selection. The product
// must be the one awaiting a quantity; a repeated tap gets ErrNoProductSelected.
func (f *OrderFlow) SetQuantity(ctx context.Context, userID, productID int64, qty int) (*OrderSummary, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := f.requireBarista(ctx, userID); err != nil {
		return nil, err
	}
	p, err := f.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	var sum OrderSummary
	err = f.sessions.Update(userID, func(s *Session) error {
		if !s.awaitingQuantity(productID) {
			return ErrNoProductSelected
		}
		if _, err := s.pendingOrder().AddItem(p, qty); err != nil {
			return err
		}
		s.State = StateChoosingCategory
		s.SelectedProduct = nil
		sum = f.summarize(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// HandleQuantityText consumes a typed quantity when the user was asked for one.
// handled is false when the conversation is not waiting for a quantity.
func (f *OrderFlow) HandleQuantityText(ctx context.Context, userID int64, text string) (sum *OrderSummary, handled bool, err error) {
	snap, ok := f.sessions.Snapshot(userID)
	if !ok || snap.State != StateAwaitingQuantityText || snap.SelectedProduct == nil {
		return nil, false, nil
	}
	qty, err := ParseQuantity(text)
	if err != nil {
		return nil, true, err
	}
	sum, err = f.SetQuantity(ctx, userID, snap.SelectedProduct.ID, qty)
	return sum, true, err
}

type AttachResult struct {
	Customer *models.Customer
	HasOrder bool
}

// ParseQRRef extracts the customer token from a /start payload or raw QR text.
func ParseQRRef(ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "/start")
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, QRStartPrefix)
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, ErrCustomerNotFound
	}
	return id, nil
}

// AttachCustomer links the customer behind a scanned QR to the barista's conversation.
func (f *OrderFlow) AttachCustomer(ctx context.Context, userID int64, ref string) (*AttachResult, error) {
	if err := f.requireBarista(ctx, userID); err != nil {
		return nil, err
	}
	token, err := ParseQRRef(ref)
	if err != nil {
		return nil, err
	}
	c, err := f.store.GetCustomerByQR(ctx, token)
	if err != nil {
		return nil, err
	}
	hasOrder := f.sessions.AttachCustomer(userID, c)
	return &AttachResult{Customer: c, HasOrder: hasOrder}, nil
}

// UseFreeDrink allots all of the attached customer's free-drink credit to the pending order.
// How much is actually redeemed is decided at finalization.
func (f *OrderFlow) UseFreeDrink(ctx context.Context, userID int64) (*OrderSummary, error) {
	snap, ok := f.sessions.Snapshot(userID)
	if !ok || snap.Customer == nil {
		return nil, ErrCustomerNotFound
	}
	c, err := f.store.GetCustomerByTgID(ctx, snap.Customer.TgUserID)
	if err != nil {
		return nil, err
	}
	if c.CoffeesFree <= 0 {
		return nil, ErrNoFreeDrinks
	}
	var sum OrderSummary
	err = f.sessions.Update(userID, func(s *Session) error {
		if s.Customer == nil || s.Customer.ID != c.ID {
			return ErrCustomerNotFound
		}
		s.Customer = c
		o := s.pendingOrder()
		id := c.ID
		o.CustomerID = &id
		o.FreeDrinks = c.CoffeesFree
		sum = f.summarize(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// Summary renders the user's pending order.
func (f *OrderFlow) Summary(userID int64) (*OrderSummary, error) {
	var sum OrderSummary
	err := f.sessions.Update(userID, func(s *Session) error {
		if s.Order == nil || len(s.Order.Items) == 0 {
			return ErrNoActiveOrder
		}
		sum = f.summarize(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// Checkout finalizes right away when a customer is attached or the order has no
// loyalty-eligible items. Otherwise it returns needsCustomer and waits for a QR scan
// or an explicit anonymous Finalize.
func (f *OrderFlow) Checkout(ctx context.Context, userID int64) (res *FinalizeResult, needsCustomer bool, err error) {
	var direct bool
	err = f.sessions.Update(userID, func(s *Session) error {
		if s.Order == nil || len(s.Order.Items) == 0 {
			return ErrNoActiveOrder
		}
		direct = s.Customer != nil || EligibleQuantity(s.Order.Items, f.eligible) == 0
		if !direct {
			s.State = StateCheckout
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !direct {
		return nil, true, nil
	}
	res, err = f.Finalize(ctx, userID)
	return res, false, err
}

// Finalize confirms the pending order, settles loyalty for the attached customer and
// clears the conversation. On a storage failure the conversation is kept so the barista
// can retry.
func (f *OrderFlow) Finalize(ctx context.Context, userID int64) (*FinalizeResult, error) {
	var res *FinalizeResult
	err := f.sessions.Update(userID, func(s *Session) error {
		if s.Order == nil || len(s.Order.Items) == 0 {
			return ErrNoActiveOrder
		}
		o := cloneOrder(s.Order)
		if s.Customer != nil {
			id := s.Customer.ID
			o.CustomerID = &id
		}
		if o.CustomerID != nil {
			unlock := f.customerLocks.Lock(*o.CustomerID)
			defer unlock()
		}

		var (
			st    Settlement
			price PriceBreakdown
			cust  *models.Customer
		)
		err := f.store.ConfirmOrder(ctx, o, func(c *models.Customer) error {
			if c != nil {
				st = SettleLoyalty(c, o.Items, o.FreeDrinks, f.coffeeLimit, f.eligible)
				cust = c
			} else {
				o.CustomerID = nil
				st = Settlement{PaidCoffees: EligibleQuantity(o.Items, f.eligible)}
			}
			price = CalcOrderPrice(o.Items, st.UsedFree, f.eligible)
			st.Total = price.Total
			for i, l := range price.Lines {
				o.Items[i].Free = l.Free
			}
			return o.Confirm(price.Total, st.UsedFree)
		})
		if err != nil {
			if isFlowError(err) || errors.Is(err, ErrPersistence) {
				return err
			}
			return storageErr("confirm order", err)
		}

		res = &FinalizeResult{
			Order:      o,
			Customer:   cust,
			Settlement: st,
			Summary:    summaryFrom(price, cust, freeLeft(cust)),
		}
		s.reset()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Customer != nil && res.Settlement.Earned > 0 && f.notifier != nil {
		notice := RewardNotice{
			OrderID:      res.Order.ID,
			CustomerTgID: res.Customer.TgUserID,
			Earned:       res.Settlement.Earned,
			CoffeesFree:  res.Customer.CoffeesFree,
			Language:     res.Customer.Language,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := f.notifier.NotifyReward(ctx, notice); err != nil {
				log.Printf("notify reward order_id=%d customer=%d: %v", notice.OrderID, notice.CustomerTgID, err)
			}
		}()
	}
	return res, nil
}

// Cancel drops the user's pending order without storing anything. It reports whether
// there was an order to drop.
func (f *OrderFlow) Cancel(userID int64) bool {
	return f.sessions.Clear(userID)
}

// CustomerStatus is the loyalty progress shown to customers by /info.
func (f *OrderFlow) CustomerStatus(ctx context.Context, tgUserID int64) (*LoyaltyStatus, error) {
	c, err := f.store.GetCustomerByTgID(ctx, tgUserID)
	if err != nil {
		return nil, err
	}
	st := NewLoyaltyStatus(c, f.coffeeLimit)
	return &st, nil
}

type DayReport struct {
	Orders []models.Order
	Total  decimal.Decimal
	Free   int
}

// DayReport lists the confirmed orders of day for baristas.
func (f *OrderFlow) DayReport(ctx context.Context, userID int64, day time.Time) (*DayReport, error) {
	if err := f.requireBarista(ctx, userID); err != nil {
		return nil, err
	}
	orders, err := f.store.ListOrdersByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	rep := &DayReport{Orders: orders, Total: decimal.Zero}
	for _, o := range orders {
		if o.TotalPaid != nil {
			rep.Total = rep.Total.Add(*o.TotalPaid)
		}
		rep.Free += o.UsedFree
	}
	return rep, nil
}

// summarize prices the session's order with the allotment capped by the attached customer's
// credit. FreeRemaining is the credit left after this order.
func (f *OrderFlow) summarize(s *Session) OrderSummary {
	allotment := s.Order.FreeDrinks
	if s.Customer != nil {
		allotment = min(allotment, s.Customer.CoffeesFree)
	} else {
		allotment = 0
	}
	price := CalcOrderPrice(s.Order.Items, allotment, f.eligible)
	var remaining int
	if s.Customer != nil {
		remaining = s.Customer.CoffeesFree - price.UsedFree
	}
	return summaryFrom(price, s.Customer, remaining)
}

func freeLeft(c *models.Customer) int {
	if c == nil {
		return 0
	}
	return c.CoffeesFree
}

func summaryFrom(price PriceBreakdown, c *models.Customer, freeRemaining int) OrderSummary {
	sum := OrderSummary{
		Total:         price.Total,
		UsedFree:      price.UsedFree,
		FreeRemaining: freeRemaining,
		Customer:      c,
	}
	for _, l := range price.Lines {
		sum.Lines = append(sum.Lines, SummaryLine{
			ProductID: l.Item.ProductID,
			Name:      l.Item.ProductName,
			UnitPrice: l.Item.UnitPrice,
			Quantity:  l.Item.Quantity,
			Free:      l.Free,
			Subtotal:  l.Payable,
		})
	}
	return sum
}
