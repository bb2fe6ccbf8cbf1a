package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"coffee-telegram/config"
	"coffee-telegram/lang"
	"coffee-telegram/models"
	"coffee-telegram/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sweepInterval = 10 * time.Minute

// Bot is the ordering bot used by baristas (orders) and customers (QR, loyalty status).
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	flow     *services.OrderFlow
	sessions services.SessionStore

	userLang   map[int64]string
	userLangMu sync.RWMutex
}

var _ services.RewardNotifier = (*Bot)(nil)

func New(cfg *config.Config, flow *services.OrderFlow, sessions services.SessionStore) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:      api,
		cfg:      cfg,
		flow:     flow,
		sessions: sessions,
		userLang: make(map[int64]string),
	}, nil
}

func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

// cardMarkup converts OrderCardContent.Buttons to Telegram inline keyboard (URL vs callback).
func cardMarkup(c services.OrderCardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if btn.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
			}
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// sendCard sends content as a new message.
func (b *Bot) sendCard(chatID int64, content services.OrderCardContent) {
	msg := tgbotapi.NewMessage(chatID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send card chat_id=%d: %v", chatID, err)
	}
}

// editCard replaces the message a button was pressed on. When the message is gone a new one is sent;
// "message is not modified" is ignored.
func (b *Bot) editCard(chatID int64, messageID int, content services.OrderCardContent) {
	if messageID == 0 {
		b.sendCard(chatID, content)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		edit.ReplyMarkup = kb
	} else {
		emptyKb := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
		edit.ReplyMarkup = &emptyKb
	}
	if _, err := b.api.Send(edit); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "not modified") {
			return
		}
		if strings.Contains(errStr, "not found") {
			b.sendCard(chatID, content)
			return
		}
		log.Printf("edit card chat_id=%d message_id=%d: %v", chatID, messageID, err)
	}
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Pornește / înregistrare"},
			{Command: "qr", Description: "Codul meu QR"},
			{Command: "info", Description: "Cafele rămase / comenzile de azi"},
			{Command: "menu", Description: "Comandă nouă (barista)"},
			{Command: "now", Description: "Comanda curentă (barista)"},
			{Command: "cancel", Description: "Anulează comanda (barista)"},
		},
	}
	_, err := b.api.Request(cfg)
	return err
}

// Start receives updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		log.Printf("set bot commands: %v", err)
	}
	go b.sweepSessions(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.CallbackQuery != nil {
			b.handleCallback(ctx, update.CallbackQuery)
			continue
		}
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		b.handleMessage(ctx, update.Message)
	}
}

// sweepSessions drops idle conversations. Their pending orders were never stored.
func (b *Bot) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.sessions.Sweep(b.cfg.Session.TTL); n > 0 {
				log.Printf("swept %d idle sessions", n)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	switch msg.Command() {
	case "start":
		if arg := strings.TrimSpace(msg.CommandArguments()); strings.HasPrefix(arg, services.QRStartPrefix) {
			b.handleScan(ctx, chatID, userID, arg)
			return
		}
		b.handleStart(ctx, msg)
	case "qr":
		b.handleQR(ctx, chatID, userID)
	case "menu":
		b.handleMenu(ctx, chatID, 0, userID)
	case "now":
		b.handleNow(chatID, userID)
	case "info":
		b.handleInfo(ctx, chatID, userID)
	case "cancel":
		b.handleCancel(chatID, 0, userID)
	default:
		if text == "" {
			return
		}
		sum, handled, err := b.flow.HandleQuantityText(ctx, userID, text)
		if !handled {
			return
		}
		if err != nil {
			b.sendError(chatID, userID, err)
			return
		}
		b.sendCard(chatID, services.BuildOrderCard(sum, b.cfg.Loyalty.Currency, b.getLang(userID)))
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send error: %v", err)
	}
}

func (b *Bot) getLang(userID int64) string {
	b.userLangMu.RLock()
	l, ok := b.userLang[userID]
	b.userLangMu.RUnlock()
	if ok {
		return l
	}
	l = lang.Default
	if stored, ok := services.GetCustomerLanguage(context.Background(), userID); ok {
		l = lang.Normalize(stored)
	}
	b.setLang(userID, l)
	return l
}

func (b *Bot) setLang(userID int64, code string) {
	b.userLangMu.Lock()
	defer b.userLangMu.Unlock()
	b.userLang[userID] = lang.Normalize(code)
}

func (b *Bot) sendLang(chatID int64, userID int64, key string, args ...interface{}) {
	b.send(chatID, lang.T(b.getLang(userID), key, args...))
}

// sendError reports a flow error to the user. Unexpected failures are logged too.
func (b *Bot) sendError(chatID, userID int64, err error) {
	key := services.ErrorMessageKey(err)
	if key == "err_storage" || key == "err_generic" {
		log.Printf("user_id=%d: %v", userID, err)
	}
	b.sendLang(chatID, userID, key)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	from := msg.From
	isBarista := b.cfg.Loyalty.IsBaristaUsername(from.UserName)

	c, created, err := b.flow.Register(ctx, from.ID, from.UserName, from.FirstName, isBarista)
	if err != nil {
		b.sendError(chatID, from.ID, err)
		return
	}
	if from.LanguageCode != "" && (created || c.Language == "") {
		code := lang.Normalize(from.LanguageCode)
		if err := services.SetCustomerLanguage(ctx, from.ID, code); err != nil {
			log.Printf("set language user_id=%d: %v", from.ID, err)
		}
		b.setLang(from.ID, code)
	}
	if created {
		log.Printf("registered user_id=%d role=%s", from.ID, c.Role)
	}

	code := b.getLang(from.ID)
	if c.IsBarista() {
		b.send(chatID, lang.T(code, "start_barista", c.DisplayName()))
		return
	}
	b.send(chatID, lang.T(code, "start_customer", c.DisplayName(), b.flow.CoffeeLimit()))
	b.sendQR(chatID, c, code)
}

func (b *Bot) handleQR(ctx context.Context, chatID, userID int64) {
	c, err := b.flow.CustomerByTgID(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrCustomerNotFound) {
			b.sendLang(chatID, userID, "not_registered")
			return
		}
		b.sendError(chatID, userID, err)
		return
	}
	b.sendQR(chatID, c, b.getLang(userID))
}

func (b *Bot) sendQR(chatID int64, c *models.Customer, code string) {
	png, err := services.CustomerQRPNG(b.api.Self.UserName, c)
	if err != nil {
		log.Printf("qr user_id=%d: %v", c.TgUserID, err)
		b.send(chatID, services.QRDeepLink(b.api.Self.UserName, c))
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "qr.png", Bytes: png})
	photo.Caption = lang.T(code, "qr_caption")
	if _, err := b.api.Send(photo); err != nil {
		log.Printf("send qr chat_id=%d: %v", chatID, err)
	}
}

// handleScan runs when a barista's camera opens the deep link of a customer QR.
func (b *Bot) handleScan(ctx context.Context, chatID, userID int64, ref string) {
	res, err := b.flow.AttachCustomer(ctx, userID, ref)
	if err != nil {
		if errors.Is(err, services.ErrNotBarista) {
			// customers scanning a QR get their own status
			b.handleInfo(ctx, chatID, userID)
			return
		}
		b.sendError(chatID, userID, err)
		return
	}
	code := b.getLang(userID)
	b.send(chatID, services.BuildCustomerAttachedText(res.Customer, b.flow.CoffeeLimit(), code))
	if !res.HasOrder {
		b.handleMenu(ctx, chatID, 0, userID)
		return
	}
	sum, err := b.flow.Summary(userID)
	if err != nil {
		b.sendError(chatID, userID, err)
		return
	}
	b.sendCard(chatID, services.BuildOrderCard(sum, b.cfg.Loyalty.Currency, code))
}

func (b *Bot) handleMenu(ctx context.Context, chatID int64, messageID int, userID int64) {
	cats, err := b.flow.Menu(ctx, userID)
	if err != nil {
		b.sendError(chatID, userID, err)
		return
	}
	b.editCard(chatID, messageID, services.BuildCategoryCard(cats, b.getLang(userID)))
}

func (b *Bot) handleNow(chatID, userID int64) {
	sum, err := b.flow.Summary(userID)
	if err != nil {
		b.sendError(chatID, userID, err)
		return
	}
	b.sendCard(chatID, services.BuildOrderCard(sum, b.cfg.Loyalty.Currency, b.getLang(userID)))
}

// handleInfo shows customers their loyalty progress and baristas today's orders.
func (b *Bot) handleInfo(ctx context.Context, chatID, userID int64) {
	code := b.getLang(userID)
	rep, err := b.flow.DayReport(ctx, userID, time.Now())
	if err == nil {
		b.send(chatID, services.BuildDayReportText(rep, b.cfg.Loyalty.Currency, code))
		return
	}
	if !errors.Is(err, services.ErrNotBarista) {
		b.sendError(chatID, userID, err)
		return
	}
	st, err := b.flow.CustomerStatus(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrCustomerNotFound) {
			b.sendLang(chatID, userID, "not_registered")
			return
		}
		b.sendError(chatID, userID, err)
		return
	}
	b.send(chatID, services.BuildLoyaltyStatusText(st, code))
}

func (b *Bot) handleCancel(chatID int64, messageID int, userID int64) {
	key := "nothing_to_cancel"
	if b.flow.Cancel(userID) {
		key = "cancelled"
	}
	b.editCard(chatID, messageID, services.OrderCardContent{Text: lang.T(b.getLang(userID), key)})
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("answer callback: %v", err)
	}
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	userID := cq.From.ID
	code := b.getLang(userID)
	currency := b.cfg.Loyalty.Currency

	cb, err := services.ParseCallback(cq.Data)
	if err != nil {
		log.Printf("callback user_id=%d: %v", userID, err)
		return
	}

	switch cb.Action {
	case services.CbMenu:
		b.handleMenu(ctx, chatID, messageID, userID)
	case services.ActCategory:
		cat, products, err := b.flow.SelectCategory(ctx, userID, cb.ID)
		if err != nil {
			b.sendError(chatID, userID, err)
			return
		}
		b.editCard(chatID, messageID, services.BuildProductCard(cat, products, currency, code))
	case services.ActProduct:
		p, err := b.flow.SelectProduct(ctx, userID, cb.ID)
		if err != nil {
			b.sendError(chatID, userID, err)
			return
		}
		b.editCard(chatID, messageID, services.BuildQuantityCard(p, b.cfg.Loyalty.QuantityOptions, currency, code))
	case services.ActMore:
		p, err := b.flow.AwaitQuantityText(ctx, userID, cb.ID)
		if err != nil {
			b.sendError(chatID, userID, err)
			return
		}
		b.editCard(chatID, messageID, services.OrderCardContent{Text: lang.T(code, "enter_quantity", p.Name)})
	case services.ActQuantity:
		sum, err := b.flow.SetQuantity(ctx, userID, cb.ID, cb.Qty)
		if err != nil {
			b.sendError(chatID, userID, err)
			return
		}
		b.editCard(chatID, messageID, services.BuildOrderCard(sum, currency, code))
	case services.CbUseFree:
		sum, err := b.flow.UseFreeDrink(ctx, userID)
		if err != nil {
			b.sendError(chatID, userID, err)
			return
		}
		b.editCard(chatID, messageID, services.BuildOrderCard(sum, currency, code))
	case services.CbCheckFinish:
		res, needsCustomer, err := b.flow.Checkout(ctx, userID)
		if err != nil {
			b.sendError(chatID, userID, err)
			return
		}
		if needsCustomer {
			b.editCard(chatID, messageID, services.BuildCheckoutCard(code))
			return
		}
		b.finished(ctx, chatID, messageID, userID, res)
	case services.CbFinish:
		res, err := b.flow.Finalize(ctx, userID)
		if err != nil {
			b.sendError(chatID, userID, err)
			return
		}
		b.finished(ctx, chatID, messageID, userID, res)
	case services.CbScanQR:
		b.send(chatID, lang.T(code, "scan_qr_hint"))
	case services.CbCancel:
		b.handleCancel(chatID, messageID, userID)
	}
}

// finished shows the receipt to the barista and the updated counters to the customer.
func (b *Bot) finished(ctx context.Context, chatID int64, messageID int, userID int64, res *services.FinalizeResult) {
	limit := b.flow.CoffeeLimit()
	b.editCard(chatID, messageID, services.OrderCardContent{
		Text: services.BuildFinalizeText(res, limit, b.cfg.Loyalty.Currency, b.getLang(userID)),
	})
	log.Printf("order confirmed order_id=%d barista=%d anonymous=%v total=%s used_free=%d",
		res.Order.ID, userID, res.Order.IsAnonymous, res.Settlement.Total.StringFixed(2), res.Settlement.UsedFree)

	c := res.Customer
	if c == nil {
		return
	}
	st := services.NewLoyaltyStatus(c, limit)
	text := services.BuildLoyaltyStatusText(&st, b.getLang(c.TgUserID))
	if _, err := b.api.Send(tgbotapi.NewMessage(c.TgUserID, text)); err != nil {
		log.Printf("send receipt customer=%d order_id=%d: %v", c.TgUserID, res.Order.ID, err)
		return
	}
	meta := map[string]interface{}{"sent_via": "order_receipt", "order_id": fmt.Sprintf("%d", res.Order.ID)}
	if err := services.SaveOutboundMessage(ctx, c.TgUserID, text, meta); err != nil {
		log.Printf("save receipt order_id=%d: %v", res.Order.ID, err)
	}
}

// NotifyReward tells the customer about earned free drinks. A notice is sent at most once per order.
func (b *Bot) NotifyReward(ctx context.Context, n services.RewardNotice) error {
	if n.Language == "" {
		n.Language = b.getLang(n.CustomerTgID)
	}
	text := services.RewardMessage(n)
	claimed, err := services.ClaimRewardNotice(ctx, n, text)
	if err != nil {
		return fmt.Errorf("claim notice: %w", err)
	}
	if !claimed {
		log.Printf("reward notice order_id=%d already sent", n.OrderID)
		return nil
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(n.CustomerTgID, text)); err != nil {
		if relErr := services.ReleaseRewardNotice(ctx, n.OrderID); relErr != nil {
			log.Printf("release reward notice order_id=%d: %v", n.OrderID, relErr)
		}
		return fmt.Errorf("send reward notice: %w", err)
	}
	return nil
}
