package models

import "time"

// User captures application-facing fields for an authenticated identity.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	VerifyToken     string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Verified reports whether the user has confirmed their email address.
func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// Profile is the one-to-one contact and payout record for a user.
type Profile struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	Name                  *string   `json:"name"`
	Email                 string    `json:"email"`
	Phone                 string    `json:"phone"`
	BankAccountHolderName *string   `json:"bank_account_holder_name"`
	BankAccountNumber     *string   `json:"bank_account_number"`
	IFSCCode              *string   `json:"ifsc_code"`
	BankName              *string   `json:"bank_name"`
	UPIID                 *string   `json:"upi_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// BankDetailsSet reports whether any bank payout field has been filled in.
// Once true, further bank edits require password re-authentication.
func (p Profile) BankDetailsSet() bool {
	for _, f := range []*string{p.BankAccountHolderName, p.BankAccountNumber, p.IFSCCode, p.BankName, p.UPIID} {
		if f != nil && *f != "" {
			return true
		}
	}
	return false
}
