package handlers

import (
	"errors"
	"mime/multipart"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Form limits mirrored from the mobile client, enforced server-side.
const (
	minPasswordLen = 6
	maxPasswordLen = 72
	maxNotesLen    = 500
	maxProofBytes  = 5 << 20
)

var phonePattern = regexp.MustCompile(`^[0-9]{6,14}$`)

// normalizePhone strips whitespace and one leading "+".
func normalizePhone(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

func validatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return errors.New("phone must be 6 to 14 digits")
	}
	return nil
}

// looksLikePhone decides whether a login identifier is a phone number.
func looksLikePhone(identifier string) bool {
	return phonePattern.MatchString(normalizePhone(identifier))
}

func validateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("a valid email address is required")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen || !utf8.ValidString(password) {
		return errors.New("password must be between 6 and 72 characters")
	}
	return nil
}

func validateAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, errors.New("amount must be a decimal number")
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, errors.New("amount must be positive")
	}
	return amount, nil
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return errors.New("notes must be at most 500 characters")
	}
	return nil
}

func validateProof(header *multipart.FileHeader) error {
	if header.Size > maxProofBytes {
		return errors.New("proof image must be at most 5MB")
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return errors.New("proof must be an image")
	}
	return nil
}

// proofExt picks a file extension from the upload's content type.
func proofExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
