package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.co.za",
		"user+tag@example.com",
	}
	for _, e := range valid {
		assert.True(t, ValidEmail(e), e)
	}

	invalid := []string{
		"",
		"user",
		"user@",
		"@example.com",
		"user@example",
		"user @example.com",
	}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), e)
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{
		"0821234567",
		"+27821234567",
	}
	for _, p := range valid {
		assert.True(t, ValidPhone(p), p)
	}

	invalid := []string{
		"",
		"082123456",     // too short
		"08212345678",   // too long
		"27821234567",   // bare country code
		"+27 82 123 4567",
		"082-123-4567",
		"abcdefghij",
	}
	for _, p := range invalid {
		assert.False(t, ValidPhone(p), p)
	}
}
