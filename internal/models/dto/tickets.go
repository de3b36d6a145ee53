package dto

import "github.com/pgpay/pgpay-backend/internal/models"

type TicketResponse struct {
	Ticket         models.Ticket `json:"ticket"`
	SignedProofURL string        `json:"signed_proof_url,omitempty"`
}

type TransitionRequest struct {
	Status models.TicketStatus `json:"status"`
	Note   *string             `json:"note"`
}

type TransitionResponse struct {
	Ticket models.Ticket `json:"ticket"`
	// AuditLogged is false when the ticket mutation committed but the
	// audit append failed.
	AuditLogged bool `json:"audit_logged"`
}

type ProfileUpdateRequest struct {
	Name                  *string `json:"name"`
	BankAccountHolderName *string `json:"bank_account_holder_name"`
	BankAccountNumber     *string `json:"bank_account_number"`
	IFSCCode              *string `json:"ifsc_code"`
	BankName              *string `json:"bank_name"`
	UPIID                 *string `json:"upi_id"`
	CurrentPassword       string  `json:"current_password,omitempty"`
}

type SettingUpdateRequest struct {
	Value *string `json:"value"`
}

type GrantRequest struct {
	Permission models.Permission `json:"permission"`
}
