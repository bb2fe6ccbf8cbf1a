package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const passwordLen = 10

// passwordClasses must each appear at least once in a generated password.
var passwordClasses = []string{
	"ABCDEFGHJKLMNPQRSTUVWXYZ",
	"abcdefghijkmnopqrstuvwxyz",
	"23456789",
	"!@#$%&*",
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// GenerateSecurePassword returns a manager password with one character of every class
// and look-alike characters left out. Uses crypto/rand.
func GenerateSecurePassword() (string, error) {
	var all string
	result := make([]byte, 0, passwordLen)
	for _, class := range passwordClasses {
		all += class
		i, err := randIndex(len(class))
		if err != nil {
			return "", err
		}
		result = append(result, class[i])
	}
	for len(result) < passwordLen {
		i, err := randIndex(len(all))
		if err != nil {
			return "", err
		}
		result = append(result, all[i])
	}
	for i := len(result) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", fmt.Errorf("shuffle: %w", err)
		}
		result[i], result[j] = result[j], result[i]
	}
	return string(result), nil
}
