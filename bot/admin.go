package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"coffee-telegram/config"
	"coffee-telegram/models"
	"coffee-telegram/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type adderState struct {
	Step       string // "category_name", "name", "price"
	CategoryID int64
	Name       string
}

// AdminBot manages the catalog and shows reports (uses ADMIN_TOKEN). The super admin (ADMIN_ID)
// logs in with LOGIN; managers log in with the password issued by /add_manager.
type AdminBot struct {
	api          *tgbotapi.BotAPI
	store        services.Store
	currency     string
	login        string
	superAdminID int64

	state    map[int64]*adderState
	loggedIn map[int64]string // "super" or "manager"
	stateMu  sync.RWMutex
}

func NewAdminBot(cfg *config.Config, store services.Store) (*AdminBot, error) {
	if cfg.Telegram.AdminToken == "" {
		return nil, fmt.Errorf("ADMIN_TOKEN not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.AdminToken)
	if err != nil {
		return nil, err
	}
	return &AdminBot{
		api:          api,
		store:        store,
		currency:     cfg.Loyalty.Currency,
		login:        strings.TrimSpace(cfg.Telegram.Login),
		superAdminID: cfg.Telegram.AdminID,
		state:        make(map[int64]*adderState),
		loggedIn:     make(map[int64]string),
	}, nil
}

// Start receives updates until ctx is done.
func (a *AdminBot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		a.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.CallbackQuery != nil {
			a.handleCallback(ctx, update.CallbackQuery)
			continue
		}
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		msg := update.Message
		chatID := msg.Chat.ID
		userID := msg.From.ID
		text := strings.TrimSpace(msg.Text)

		switch msg.Command() {
		case "cancel":
			a.clearState(userID)
			a.send(chatID, "Cancelled.")
			continue
		case "start":
			if a.role(userID) != "" {
				a.sendAdminPanel(chatID)
			} else {
				a.send(chatID, "🔒 Admin panel. Send your password to continue.")
			}
			continue
		case "logout":
			a.stateMu.Lock()
			delete(a.loggedIn, userID)
			delete(a.state, userID)
			a.stateMu.Unlock()
			a.send(chatID, "Logged out.")
			continue
		}

		if a.role(userID) == "" {
			a.handleLogin(ctx, chatID, userID, text)
			continue
		}
		if a.handleCommand(ctx, msg, text) {
			continue
		}
		if a.handleMenuAddFlow(ctx, chatID, userID, text) {
			continue
		}
		a.sendAdminPanel(chatID)
	}
}

func (a *AdminBot) role(userID int64) string {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.loggedIn[userID]
}

func (a *AdminBot) clearState(userID int64) {
	a.stateMu.Lock()
	delete(a.state, userID)
	a.stateMu.Unlock()
}

func (a *AdminBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := a.api.Send(msg); err != nil {
		log.Printf("admin send error: %v", err)
	}
}

func (a *AdminBot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := a.api.Send(msg); err != nil {
		log.Printf("admin send error: %v", err)
	}
}

// handleLogin treats the message as a password attempt, throttled per user and role.
func (a *AdminBot) handleLogin(ctx context.Context, chatID, userID int64, text string) {
	role, throttleRole := "manager", services.ThrottleRoleManager
	if a.superAdminID != 0 && userID == a.superAdminID {
		role, throttleRole = "super", services.ThrottleRoleSuperadmin
	}
	wait, err := services.LoginThrottleWaitSeconds(ctx, userID, throttleRole)
	if err != nil {
		log.Printf("login throttle user_id=%d: %v", userID, err)
	}
	if wait > 0 {
		a.send(chatID, fmt.Sprintf("⏳ Too many attempts. Try again in %d s.", wait))
		return
	}

	var ok bool
	if role == "super" {
		ok = a.login != "" && text == a.login
	} else {
		ok, err = services.VerifyManagerCredential(ctx, userID, text)
		if err != nil {
			log.Printf("verify manager user_id=%d: %v", userID, err)
		}
	}
	if !ok {
		if err := services.RecordLoginFailed(ctx, userID, throttleRole); err != nil {
			log.Printf("record login failed user_id=%d: %v", userID, err)
		}
		a.send(chatID, "🔒 Wrong password.")
		return
	}
	if err := services.RecordLoginSuccess(ctx, userID, throttleRole); err != nil {
		log.Printf("record login success user_id=%d: %v", userID, err)
	}
	a.stateMu.Lock()
	a.loggedIn[userID] = role
	a.stateMu.Unlock()
	log.Printf("admin login user_id=%d role=%s", userID, role)
	a.sendAdminPanel(chatID)
}

func (a *AdminBot) adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add Category", "admin:add_category"),
			tgbotapi.NewInlineKeyboardButtonData("➕ Add Product", "admin:add_product"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 List / Delete Products", "admin:list"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Today", "admin:stats"),
			tgbotapi.NewInlineKeyboardButtonData("👥 Top customers", "admin:customers"),
		),
	)
}

func (a *AdminBot) sendAdminPanel(chatID int64) {
	text := "📋 Admin\n\nCommands:\n" +
		"/stats [YYYY-MM-DD] — day summary\n" +
		"/sales FROM TO — product sales\n" +
		"/customers — top customers\n" +
		"/barista <tg_id>, /unbarista <tg_id> — barista role\n" +
		"/add_manager <tg_id>, /remove_manager <tg_id> — admin access (super admin)\n" +
		"/logout"
	a.sendWithInline(chatID, text, a.adminKeyboard())
}

func (a *AdminBot) sendCategoryPicker(ctx context.Context, chatID int64) {
	cats, err := a.store.ListCategories(ctx)
	if err != nil {
		a.send(chatID, "Failed to load categories: "+err.Error())
		return
	}
	if len(cats) == 0 {
		a.send(chatID, "No categories yet. Add one first.")
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range cats {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Name, "admin:addp:"+strconv.FormatInt(c.ID, 10)),
		))
	}
	a.sendWithInline(chatID, "Choose the category of the new product:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (a *AdminBot) sendProductList(ctx context.Context, chatID int64) {
	items, err := services.ListAllProducts(ctx)
	if err != nil {
		a.send(chatID, "Failed to load list: "+err.Error())
		return
	}
	if len(items) == 0 {
		a.sendWithInline(chatID, "No products in the menu.", a.adminKeyboard())
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	text := "📋 Products — tap to delete:\n\n"
	for _, p := range items {
		text += fmt.Sprintf("• [%s] %s — %s %s\n", p.CategoryName, p.Name, p.Price.StringFixed(2), a.currency)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+p.Name, "admin:del:"+strconv.FormatInt(p.ID, 10)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("« Back to panel", "admin:back"),
	))
	a.sendWithInline(chatID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (a *AdminBot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := a.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("admin answer callback: %v", err)
	}
	if cq.Message == nil || a.role(cq.From.ID) == "" {
		return
	}
	chatID := cq.Message.Chat.ID
	userID := cq.From.ID
	data := cq.Data

	switch {
	case data == "admin:back":
		a.sendAdminPanel(chatID)
	case data == "admin:add_category":
		a.stateMu.Lock()
		a.state[userID] = &adderState{Step: "category_name"}
		a.stateMu.Unlock()
		a.send(chatID, "Send the name of the new category (e.g. Coffee):")
	case data == "admin:add_product":
		a.sendCategoryPicker(ctx, chatID)
	case strings.HasPrefix(data, "admin:addp:"):
		catID, err := strconv.ParseInt(strings.TrimPrefix(data, "admin:addp:"), 10, 64)
		if err != nil {
			return
		}
		cat, err := a.store.GetCategory(ctx, catID)
		if err != nil {
			a.send(chatID, "Category not found.")
			return
		}
		a.stateMu.Lock()
		a.state[userID] = &adderState{Step: "name", CategoryID: catID}
		a.stateMu.Unlock()
		a.send(chatID, fmt.Sprintf("Send the name of the new %s product (e.g. Cappuccino):", cat.Name))
	case data == "admin:list":
		a.sendProductList(ctx, chatID)
	case strings.HasPrefix(data, "admin:del:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, "admin:del:"), 10, 64)
		if err != nil {
			return
		}
		if err := services.DeleteProduct(ctx, id); err != nil {
			a.send(chatID, "Failed to delete: "+err.Error())
			return
		}
		log.Printf("product deleted id=%d by=%d", id, userID)
		a.send(chatID, "✅ Product deleted.")
		a.sendProductList(ctx, chatID)
	case data == "admin:stats":
		a.sendStats(ctx, chatID, time.Now())
	case data == "admin:customers":
		a.sendTopCustomers(ctx, chatID)
	}
}

// handleMenuAddFlow processes the add category (name) and add product (name -> price) flows.
func (a *AdminBot) handleMenuAddFlow(ctx context.Context, chatID, userID int64, text string) bool {
	a.stateMu.RLock()
	st := a.state[userID]
	a.stateMu.RUnlock()
	if st == nil {
		return false
	}

	switch st.Step {
	case "category_name":
		id, err := services.AddCategory(ctx, text)
		a.clearState(userID)
		if err != nil {
			a.send(chatID, "❌ Failed to add category: "+err.Error())
			return true
		}
		a.send(chatID, fmt.Sprintf("✅ Category «%s» saved (ID %d).", text, id))
		a.sendAdminPanel(chatID)
	case "name":
		a.stateMu.Lock()
		st.Name = text
		st.Step = "price"
		a.stateMu.Unlock()
		a.send(chatID, fmt.Sprintf("Enter the price in %s for «%s»:", a.currency, text))
	case "price":
		price, err := parsePrice(text)
		if err != nil {
			a.send(chatID, "Invalid price. Send a number (e.g. 35 or 35.50).")
			return true
		}
		id, err := services.AddProduct(ctx, st.CategoryID, st.Name, price)
		a.clearState(userID)
		if err != nil {
			a.send(chatID, "❌ Failed to add product: "+err.Error())
			return true
		}
		log.Printf("product added id=%d by=%d", id, userID)
		a.send(chatID, fmt.Sprintf("✅ «%s» added for %s %s.", st.Name, price.StringFixed(2), a.currency))
		a.sendAdminPanel(chatID)
	default:
		return false
	}
	return true
}

// handleCommand runs report and role commands. It reports whether text was a known command.
func (a *AdminBot) handleCommand(ctx context.Context, msg *tgbotapi.Message, text string) bool {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "stats":
		day, err := parseDateArg(args, time.Now())
		if err != nil {
			a.send(chatID, "Usage: /stats [YYYY-MM-DD]")
			return true
		}
		a.sendStats(ctx, chatID, day)
	case "sales":
		from, to, err := parseRangeArgs(args, time.Now())
		if err != nil {
			a.send(chatID, "Usage: /sales FROM TO (YYYY-MM-DD)")
			return true
		}
		a.sendSales(ctx, chatID, from, to)
	case "customers":
		a.sendTopCustomers(ctx, chatID)
	case "barista", "unbarista":
		id, err := parseUserIDArg(args)
		if err != nil {
			a.send(chatID, "Usage: /"+msg.Command()+" <telegram user id>")
			return true
		}
		role := models.RoleBarista
		if msg.Command() == "unbarista" {
			role = models.RoleCustomer
		}
		if err := a.store.SetCustomerRole(ctx, id, role); err != nil {
			if errors.Is(err, services.ErrCustomerNotFound) {
				a.send(chatID, "User not found. They must /start the ordering bot first.")
				return true
			}
			a.send(chatID, "❌ "+err.Error())
			return true
		}
		log.Printf("role set tg_user_id=%d role=%s by=%d", id, role, userID)
		a.send(chatID, fmt.Sprintf("✅ %d is now %s.", id, role))
	case "add_manager", "remove_manager":
		if a.role(userID) != "super" {
			a.send(chatID, "Only the super admin can manage admin access.")
			return true
		}
		id, err := parseUserIDArg(args)
		if err != nil {
			a.send(chatID, "Usage: /"+msg.Command()+" <telegram user id>")
			return true
		}
		if msg.Command() == "remove_manager" {
			ok, err := services.DeactivateManager(ctx, id)
			if err != nil {
				a.send(chatID, "❌ "+err.Error())
				return true
			}
			if !ok {
				a.send(chatID, "No active manager with that ID.")
				return true
			}
			a.stateMu.Lock()
			delete(a.loggedIn, id)
			a.stateMu.Unlock()
			a.send(chatID, "✅ Access removed.")
			return true
		}
		password, err := services.IssueManagerCredential(ctx, id, userID)
		if err != nil {
			a.send(chatID, "❌ "+err.Error())
			return true
		}
		log.Printf("manager credential issued tg_user_id=%d by=%d", id, userID)
		a.send(chatID, fmt.Sprintf("✅ Manager %d can log in with this password:\n%s\n\nShare it privately.", id, password))
	default:
		return false
	}
	return true
}

func (a *AdminBot) sendStats(ctx context.Context, chatID int64, day time.Time) {
	s, err := services.GetDailyStats(ctx, day)
	if err != nil {
		a.send(chatID, "Failed to load stats: "+err.Error())
		return
	}
	a.send(chatID, formatDailyStats(day, s, a.currency))
}

func (a *AdminBot) sendSales(ctx context.Context, chatID int64, from, to time.Time) {
	rows, err := services.GetProductSales(ctx, from, to)
	if err != nil {
		a.send(chatID, "Failed to load sales: "+err.Error())
		return
	}
	a.send(chatID, formatProductSales(from, to, rows, a.currency))
}

func (a *AdminBot) sendTopCustomers(ctx context.Context, chatID int64) {
	rows, err := services.GetTopCustomers(ctx, 10)
	if err != nil {
		a.send(chatID, "Failed to load customers: "+err.Error())
		return
	}
	a.send(chatID, formatTopCustomers(rows, a.currency))
}

func formatDailyStats(day time.Time, s *models.DailyStats, currency string) string {
	return fmt.Sprintf("📊 %s\n\nOrders: %d (anonymous: %d)\nItems sold: %d\nFree drinks redeemed: %d\nRevenue: %s %s",
		day.Format(dateLayout), s.OrdersCount, s.AnonymousCount, s.ItemsSold, s.FreeRedeemed, s.Revenue.StringFixed(2), currency)
}

func formatProductSales(from, to time.Time, rows []models.ProductSales, currency string) string {
	head := fmt.Sprintf("📈 Sales %s … %s", from.Format(dateLayout), to.Format(dateLayout))
	if len(rows) == 0 {
		return head + "\n\nNo sales."
	}
	var sb strings.Builder
	sb.WriteString(head + "\n\n")
	total := decimal.Zero
	for _, r := range rows {
		fmt.Fprintf(&sb, "• [%s] %s × %d — %s %s\n", r.CategoryName, r.Name, r.Quantity, r.Revenue.StringFixed(2), currency)
		total = total.Add(r.Revenue)
	}
	fmt.Fprintf(&sb, "\nTotal: %s %s", total.StringFixed(2), currency)
	return sb.String()
}

func formatTopCustomers(rows []models.CustomerTotals, currency string) string {
	if len(rows) == 0 {
		return "👥 No customer orders yet."
	}
	var sb strings.Builder
	sb.WriteString("👥 Top customers\n\n")
	for i, r := range rows {
		fmt.Fprintf(&sb, "%d. %s — %s %s, %d items, free: %d\n",
			i+1, r.Customer.DisplayName(), r.TotalPaid.StringFixed(2), currency, r.Quantity, r.Customer.CoffeesFree)
	}
	return sb.String()
}

func parsePrice(text string) (decimal.Decimal, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	text = strings.ReplaceAll(text, ",", ".")
	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, err
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("price must be >= 0")
	}
	return price.Round(2), nil
}

// parseDateArg returns the day named by args[0], or today when absent.
func parseDateArg(args []string, now time.Time) (time.Time, error) {
	if len(args) == 0 {
		return now, nil
	}
	return time.ParseInLocation(dateLayout, args[0], now.Location())
}

// parseRangeArgs parses FROM TO; a missing TO means FROM only, no args means today.
func parseRangeArgs(args []string, now time.Time) (time.Time, time.Time, error) {
	from, err := parseDateArg(args, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if len(args) < 2 {
		return from, from, nil
	}
	to, err := time.ParseInLocation(dateLayout, args[1], now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("range end before start")
	}
	return from, to, nil
}

func parseUserIDArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one user id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", args[0])
	}
	return id, nil
}
