package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, validatePhone("123456"))
	assert.NoError(t, validatePhone("98765432101234"))
	assert.Error(t, validatePhone("12345"))
	assert.Error(t, validatePhone("123456789012345"))
	assert.Error(t, validatePhone("12345a"))
	assert.Error(t, validatePhone(""))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "919876543210", normalizePhone("+919876543210"))
	assert.Equal(t, "123456", normalizePhone(" 123456 "))
}

func TestLooksLikePhone(t *testing.T) {
	assert.True(t, looksLikePhone("+919876543210"))
	assert.True(t, looksLikePhone("123456"))
	assert.False(t, looksLikePhone("user@example.com"))
	assert.False(t, looksLikePhone("12345"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, validatePassword("secret1"))
	assert.NoError(t, validatePassword("123456"))
	assert.Error(t, validatePassword("12345"))
	assert.Error(t, validatePassword(strings.Repeat("x", 73)))
	assert.NoError(t, validatePassword(strings.Repeat("x", 72)))
}

func TestValidateAmount(t *testing.T) {
	amount, err := validateAmount("25.50")
	require.NoError(t, err)
	assert.Equal(t, "25.5", amount.String())

	_, err = validateAmount("0")
	assert.Error(t, err)
	_, err = validateAmount("-1.00")
	assert.Error(t, err)
	_, err = validateAmount("abc")
	assert.Error(t, err)
	_, err = validateAmount("")
	assert.Error(t, err)
}

func TestValidateNotes(t *testing.T) {
	assert.NoError(t, validateNotes(""))
	assert.NoError(t, validateNotes(strings.Repeat("a", 500)))
	assert.Error(t, validateNotes(strings.Repeat("a", 501)))
}
