package services

import (
	"fmt"

	"coffee-telegram/models"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 512

// QRDeepLink is the link encoded in a customer's QR code. Scanning it opens the bot with
// /start qr_<token>, which attaches the customer when the scanner is a barista.
func QRDeepLink(botUsername string, c *models.Customer) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%s", botUsername, QRStartPrefix, c.QRCode)
}

// CustomerQRPNG renders the customer's QR code as a PNG.
func CustomerQRPNG(botUsername string, c *models.Customer) ([]byte, error) {
	png, err := qrcode.Encode(QRDeepLink(botUsername, c), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
