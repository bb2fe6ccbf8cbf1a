package services

import (
	"bytes"
	"strings"
	"testing"

	"coffee-telegram/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRDeepLinkRoundTrip(t *testing.T) {
	c := &models.Customer{QRCode: uuid.New()}
	link := QRDeepLink("coffee_bot", c)
	assert.True(t, strings.HasPrefix(link, "https://t.me/coffee_bot?start=qr_"))

	payload := link[strings.Index(link, "=")+1:]
	got, err := ParseQRRef(payload)
	require.NoError(t, err)
	assert.Equal(t, c.QRCode, got)
}

func TestCustomerQRPNG(t *testing.T) {
	png, err := CustomerQRPNG("coffee_bot", &models.Customer{QRCode: uuid.New()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
