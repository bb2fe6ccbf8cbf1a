package lang

import (
	"fmt"
	"strings"
)

const (
	Ro = "ro"
	En = "en"

	Default = Ro
)

var messages = map[string]map[string]string{
	Ro: ro,
	En: en,
}

// Normalize maps a Telegram language code (e.g. "en-US") to a supported language.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := messages[code]; ok {
		return code
	}
	return Default
}

// T returns the message for key in the given language, formatted with args when any.
// Unknown languages fall back to Default and unknown keys to the key itself.
func T(code, key string, args ...interface{}) string {
	msg, ok := messages[Normalize(code)][key]
	if !ok {
		msg, ok = messages[Default][key]
	}
	if !ok {
		msg = key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

var ro = map[string]string{
	"start_customer":     "Bună, %s! ☕\nArată acest cod QR baristei la fiecare comandă. La fiecare %d cafele plătite primești una gratuită.",
	"start_barista":      "Bună, %s! Ești barista. Folosește /menu pentru o comandă nouă.",
	"qr_caption":         "Codul tău QR. Arată-l baristei.",
	"info_customer":      "☕ Mai ai de băut %d cafele până la următoarea gratuită.\n🎁 Cafele gratuite disponibile: %d",
	"info_barista_empty": "Astăzi nu sunt comenzi.",
	"info_barista_head":  "📋 Comenzile de azi:",
	"info_barista_line":  "#%d · %s · %s %s",
	"info_barista_item":  "   %s × %d",
	"info_barista_total": "Total: %s %s · gratuite: %d",
	"anonymous":          "anonim",

	"choose_category":   "Alege categoria:",
	"choose_product":    "Categoria «%s». Alege produsul:",
	"no_products":       "În această categorie nu sunt produse.",
	"choose_quantity":   "%s · %s %s\nAlege cantitatea:",
	"enter_quantity":    "Scrie cantitatea pentru %s:",
	"btn_more":          "Mai mult",
	"btn_add_more":      "➕ Adaugă",
	"btn_use_free":      "🎁 Folosește cafele gratuite",
	"btn_finish":        "✅ Finalizează",
	"btn_cancel":        "❌ Anulează",
	"btn_no_qr":         "Fără QR",
	"btn_scan_qr":       "Scanează QR",
	"btn_back":          "⬅️ Înapoi",
	"order_head":        "🧾 Comanda curentă:",
	"order_line":        "%s × %d · %s %s",
	"order_line_free":   "%s × %d (%d gratuite) · %s %s",
	"order_total":       "Total: %s %s",
	"order_customer":    "Client: %s · gratuite disponibile: %d",
	"checkout_ask_qr":   "Clientul are cod QR? Scanează-l sau finalizează fără QR.",
	"scan_qr_hint":      "Scanează codul QR al clientului cu camera telefonului și apasă Start.",
	"order_done":        "✅ Comanda #%d a fost înregistrată. De plată: %s %s",
	"order_done_free":   "🎁 Cafele gratuite folosite: %d",
	"order_done_client": "Client: %s · cafele: %d/%d · gratuite: %d",
	"customer_attached": "👤 Client: %s · cafele: %d/%d · gratuite: %d",
	"reward_earned":     "🎉 Ai primit %d cafea(le) gratuită(e)! Disponibile acum: %d",
	"cancelled":         "Comanda a fost anulată.",
	"nothing_to_cancel": "Nu ai nicio comandă activă.",

	"err_not_barista":        "Această comandă este disponibilă doar pentru baristă.",
	"err_no_order":           "Nu există o comandă activă. Folosește /menu.",
	"err_no_product":         "Alege mai întâi un produs din /menu.",
	"err_no_free":            "Clientul nu are cafele gratuite.",
	"err_customer_not_found": "Clientul nu a fost găsit. Rugați-l să pornească botul.",
	"err_product_not_found":  "Produsul nu a fost găsit.",
	"err_category_not_found": "Categoria nu a fost găsită.",
	"err_quantity":           "Cantitatea trebuie să fie un număr întreg pozitiv.",
	"err_confirmed":          "Comanda este deja confirmată.",
	"err_storage":            "Eroare la salvare. Încearcă din nou.",
	"err_generic":            "Ceva nu a mers. Încearcă din nou.",
	"not_registered":         "Apasă /start pentru a te înregistra.",
}

var en = map[string]string{
	"start_customer":     "Hi, %s! ☕\nShow this QR code to the barista with every order. Every %d paid coffees earn you a free one.",
	"start_barista":      "Hi, %s! You are a barista. Use /menu to start an order.",
	"qr_caption":         "Your QR code. Show it to the barista.",
	"info_customer":      "☕ %d more coffees until the next free one.\n🎁 Free coffees available: %d",
	"info_barista_empty": "No orders today.",
	"info_barista_head":  "📋 Today's orders:",
	"info_barista_line":  "#%d · %s · %s %s",
	"info_barista_item":  "   %s × %d",
	"info_barista_total": "Total: %s %s · free: %d",
	"anonymous":          "anonymous",

	"choose_category":   "Choose a category:",
	"choose_product":    "Category «%s». Choose a product:",
	"no_products":       "No products in this category.",
	"choose_quantity":   "%s · %s %s\nChoose the quantity:",
	"enter_quantity":    "Type the quantity for %s:",
	"btn_more":          "More",
	"btn_add_more":      "➕ Add",
	"btn_use_free":      "🎁 Use free coffees",
	"btn_finish":        "✅ Finish",
	"btn_cancel":        "❌ Cancel",
	"btn_no_qr":         "No QR",
	"btn_scan_qr":       "Scan QR",
	"btn_back":          "⬅️ Back",
	"order_head":        "🧾 Current order:",
	"order_line":        "%s × %d · %s %s",
	"order_line_free":   "%s × %d (%d free) · %s %s",
	"order_total":       "Total: %s %s",
	"order_customer":    "Customer: %s · free available: %d",
	"checkout_ask_qr":   "Does the customer have a QR code? Scan it or finish without QR.",
	"scan_qr_hint":      "Scan the customer's QR code with the phone camera and press Start.",
	"order_done":        "✅ Order #%d saved. To pay: %s %s",
	"order_done_free":   "🎁 Free coffees used: %d",
	"order_done_client": "Customer: %s · coffees: %d/%d · free: %d",
	"customer_attached": "👤 Customer: %s · coffees: %d/%d · free: %d",
	"reward_earned":     "🎉 You earned %d free coffee(s)! Available now: %d",
	"cancelled":         "The order was cancelled.",
	"nothing_to_cancel": "You have no active order.",

	"err_not_barista":        "This command is for baristas only.",
	"err_no_order":           "There is no active order. Use /menu.",
	"err_no_product":         "Choose a product from /menu first.",
	"err_no_free":            "The customer has no free coffees.",
	"err_customer_not_found": "Customer not found. Ask them to start the bot.",
	"err_product_not_found":  "Product not found.",
	"err_category_not_found": "Category not found.",
	"err_quantity":           "Quantity must be a positive whole number.",
	"err_confirmed":          "The order is already confirmed.",
	"err_storage":            "Could not save. Please try again.",
	"err_generic":            "Something went wrong. Please try again.",
	"not_registered":         "Press /start to register.",
}
