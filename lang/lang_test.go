package lang

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ro", Ro},
		{"en-US", En},
		{"EN", En},
		{"uk", Default},
		{"", Default},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestT(t *testing.T) {
	assert.Equal(t, "Comanda a fost anulată.", T(Ro, "cancelled"))
	assert.Equal(t, "The order was cancelled.", T("en-GB", "cancelled"))
	assert.Equal(t, "missing_key", T(En, "missing_key"))
	assert.True(t, strings.Contains(T(En, "order_total", "45.00", "MDL"), "45.00 MDL"))
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range ro {
		_, ok := en[key]
		assert.True(t, ok, "en is missing %q", key)
	}
	for key := range en {
		_, ok := ro[key]
		assert.True(t, ok, "ro is missing %q", key)
	}
}
