package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecurePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := GenerateSecurePassword()
		require.NoError(t, err)
		assert.Len(t, p, passwordLen)
		for _, class := range passwordClasses {
			assert.True(t, strings.ContainsAny(p, class), "%q misses one of %q", p, class)
		}
		seen[p] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "s3cret"))

	_, err = HashPassword("")
	assert.Error(t, err)
}
