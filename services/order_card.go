package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coffee-telegram/lang"
	"coffee-telegram/models"

	"github.com/shopspring/decimal"
)

// Actions of the buttons that carry an id.
const (
	ActCategory = "category"
	ActProduct  = "product"
	ActQuantity = "quantity"
	ActMore     = "more"
)

// Callback data of the ordering bot's inline buttons.
const (
	CbCategory    = ActCategory + "_" // category_<id>
	CbProduct     = ActProduct + "_"  // product_<id>
	CbQuantity    = ActQuantity + "_" // quantity_<productID>_<n>
	CbMore        = ActMore + "_"     // more_<productID>
	CbMenu        = "menu"
	CbUseFree     = "use_free"
	CbCheckFinish = "check_finish"
	CbFinish      = "finish"
	CbScanQR      = "scan_qr"
	CbCancel      = "cancel"
)

// OrderCardButton is one inline button (text + callback_data or url).
type OrderCardButton struct {
	Text         string
	CallbackData string
	URL          string // if set, use as URL button instead of callback
}

// OrderCardContent is the text and optional inline keyboard of a bot message.
type OrderCardContent struct {
	Text    string
	Buttons [][]OrderCardButton
}

// Callback is parsed inline button data.
type Callback struct {
	Action string // an Act constant or one of the plain Cb constants
	ID     int64
	Qty    int
}

// ParseCallback decodes the data of a button built by this file.
func ParseCallback(data string) (Callback, error) {
	switch data {
	case CbMenu, CbUseFree, CbCheckFinish, CbFinish, CbScanQR, CbCancel:
		return Callback{Action: data}, nil
	}
	for _, prefix := range []string{CbCategory, CbProduct, CbMore, CbQuantity} {
		rest, ok := strings.CutPrefix(data, prefix)
		if !ok {
			continue
		}
		cb := Callback{Action: strings.TrimSuffix(prefix, "_")}
		idPart := rest
		if prefix == CbQuantity {
			var qtyPart string
			idPart, qtyPart, ok = strings.Cut(rest, "_")
			if !ok {
				return Callback{}, fmt.Errorf("bad callback %q", data)
			}
			qty, err := strconv.Atoi(qtyPart)
			if err != nil {
				return Callback{}, fmt.Errorf("bad callback %q", data)
			}
			cb.Qty = qty
		}
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return Callback{}, fmt.Errorf("bad callback %q", data)
		}
		cb.ID = id
		return cb, nil
	}
	return Callback{}, fmt.Errorf("unknown callback %q", data)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func BuildCategoryCard(cats []models.Category, code string) OrderCardContent {
	card := OrderCardContent{Text: lang.T(code, "choose_category")}
	for _, c := range cats {
		card.Buttons = append(card.Buttons, []OrderCardButton{{
			Text:         c.Name,
			CallbackData: CbCategory + strconv.FormatInt(c.ID, 10),
		}})
	}
	return card
}

func BuildProductCard(cat *models.Category, products []models.Product, currency, code string) OrderCardContent {
	if len(products) == 0 {
		return OrderCardContent{
			Text:    lang.T(code, "no_products"),
			Buttons: [][]OrderCardButton{{{Text: lang.T(code, "btn_back"), CallbackData: CbMenu}}},
		}
	}
	card := OrderCardContent{Text: lang.T(code, "choose_product", cat.Name)}
	for _, p := range products {
		card.Buttons = append(card.Buttons, []OrderCardButton{{
			Text:         fmt.Sprintf("%s · %s %s", p.Name, money(p.Price), currency),
			CallbackData: CbProduct + strconv.FormatInt(p.ID, 10),
		}})
	}
	card.Buttons = append(card.Buttons, []OrderCardButton{{Text: lang.T(code, "btn_back"), CallbackData: CbMenu}})
	return card
}

// BuildQuantityCard offers one button per quantity option plus "more" for a typed quantity.
func BuildQuantityCard(p *models.Product, options []int, currency, code string) OrderCardContent {
	card := OrderCardContent{Text: lang.T(code, "choose_quantity", p.Name, money(p.Price), currency)}
	id := strconv.FormatInt(p.ID, 10)
	var row []OrderCardButton
	for _, n := range options {
		row = append(row, OrderCardButton{
			Text:         strconv.Itoa(n),
			CallbackData: CbQuantity + id + "_" + strconv.Itoa(n),
		})
	}
	card.Buttons = [][]OrderCardButton{
		row,
		{{Text: lang.T(code, "btn_more"), CallbackData: CbMore + id}},
		{{Text: lang.T(code, "btn_back"), CallbackData: CbMenu}},
	}
	return card
}

func orderLines(sum *OrderSummary, currency, code string) []string {
	lines := []string{lang.T(code, "order_head")}
	for _, l := range sum.Lines {
		if l.Free > 0 {
			lines = append(lines, lang.T(code, "order_line_free", l.Name, l.Quantity, l.Free, money(l.Subtotal), currency))
		} else {
			lines = append(lines, lang.T(code, "order_line", l.Name, l.Quantity, money(l.Subtotal), currency))
		}
	}
	lines = append(lines, lang.T(code, "order_total", money(sum.Total), currency))
	return lines
}

// BuildOrderCard shows the pending order with the actions available on it.
func BuildOrderCard(sum *OrderSummary, currency, code string) OrderCardContent {
	lines := orderLines(sum, currency, code)
	if sum.Customer != nil {
		lines = append(lines, lang.T(code, "order_customer", sum.Customer.DisplayName(), sum.FreeRemaining))
	}
	buttons := [][]OrderCardButton{{{Text: lang.T(code, "btn_add_more"), CallbackData: CbMenu}}}
	if sum.Customer != nil && sum.FreeRemaining > 0 {
		buttons = append(buttons, []OrderCardButton{{Text: lang.T(code, "btn_use_free"), CallbackData: CbUseFree}})
	}
	buttons = append(buttons,
		[]OrderCardButton{{Text: lang.T(code, "btn_finish"), CallbackData: CbCheckFinish}},
		[]OrderCardButton{{Text: lang.T(code, "btn_cancel"), CallbackData: CbCancel}},
	)
	return OrderCardContent{Text: strings.Join(lines, "\n"), Buttons: buttons}
}

// BuildCheckoutCard asks whether the order belongs to a loyalty customer.
func BuildCheckoutCard(code string) OrderCardContent {
	return OrderCardContent{
		Text: lang.T(code, "checkout_ask_qr"),
		Buttons: [][]OrderCardButton{
			{{Text: lang.T(code, "btn_no_qr"), CallbackData: CbFinish}, {Text: lang.T(code, "btn_scan_qr"), CallbackData: CbScanQR}},
			{{Text: lang.T(code, "btn_cancel"), CallbackData: CbCancel}},
		},
	}
}

// BuildFinalizeText is the barista's receipt of a confirmed order.
func BuildFinalizeText(res *FinalizeResult, coffeeLimit int, currency, code string) string {
	lines := orderLines(&res.Summary, currency, code)
	lines = append(lines, "", lang.T(code, "order_done", res.Order.ID, money(res.Settlement.Total), currency))
	if res.Settlement.UsedFree > 0 {
		lines = append(lines, lang.T(code, "order_done_free", res.Settlement.UsedFree))
	}
	if c := res.Customer; c != nil {
		lines = append(lines, lang.T(code, "order_done_client", c.DisplayName(), c.CoffeesCount, coffeeLimit, c.CoffeesFree))
	}
	return strings.Join(lines, "\n")
}

// BuildCustomerAttachedText confirms a scanned QR to the barista.
func BuildCustomerAttachedText(c *models.Customer, coffeeLimit int, code string) string {
	return lang.T(code, "customer_attached", c.DisplayName(), c.CoffeesCount, coffeeLimit, c.CoffeesFree)
}

func BuildDayReportText(rep *DayReport, currency, code string) string {
	if len(rep.Orders) == 0 {
		return lang.T(code, "info_barista_empty")
	}
	lines := []string{lang.T(code, "info_barista_head")}
	for _, o := range rep.Orders {
		who := o.CustomerName
		if o.IsAnonymous || who == "" {
			who = lang.T(code, "anonymous")
		}
		total := decimal.Zero
		if o.TotalPaid != nil {
			total = *o.TotalPaid
		}
		lines = append(lines, lang.T(code, "info_barista_line", o.ID, who, money(total), currency))
		for _, it := range o.Items {
			lines = append(lines, lang.T(code, "info_barista_item", it.ProductName, it.Quantity))
		}
	}
	lines = append(lines, lang.T(code, "info_barista_total", money(rep.Total), currency, rep.Free))
	return strings.Join(lines, "\n")
}

func BuildLoyaltyStatusText(st *LoyaltyStatus, code string) string {
	return lang.T(code, "info_customer", st.CoffeesLeft, st.FreeDrinks)
}

func RewardMessage(n RewardNotice) string {
	return lang.T(n.Language, "reward_earned", n.Earned, n.CoffeesFree)
}

// ErrorMessageKey maps a flow error to its lang key.
func ErrorMessageKey(err error) string {
	switch {
	case errors.Is(err, ErrNotBarista):
		return "err_not_barista"
	case errors.Is(err, ErrNoActiveOrder):
		return "err_no_order"
	case errors.Is(err, ErrNoProductSelected):
		return "err_no_product"
	case errors.Is(err, ErrNoFreeDrinks):
		return "err_no_free"
	case errors.Is(err, ErrCustomerNotFound):
		return "err_customer_not_found"
	case errors.Is(err, ErrProductNotFound):
		return "err_product_not_found"
	case errors.Is(err, ErrCategoryNotFound):
		return "err_category_not_found"
	case errors.Is(err, ErrInvalidQuantity):
		return "err_quantity"
	case errors.Is(err, ErrOrderConfirmed):
		return "err_confirmed"
	case errors.Is(err, ErrPersistence):
		return "err_storage"
	default:
		return "err_generic"
	}
}
