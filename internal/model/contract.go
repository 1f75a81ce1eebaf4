package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusPending ContractStatus = "pending"
	ContractStatusSigned  ContractStatus = "signed"
	ContractStatusExpired ContractStatus = "expired"
)

// Contract is the central record. The snapshot columns are frozen at
// generation time and never refreshed; the token is the only public handle.
type Contract struct {
	ID              uuid.UUID        `json:"id"`
	Token           string           `json:"token"`
	UserID          uuid.UUID        `json:"user_id"`
	LeadID          *uuid.UUID       `json:"lead_id"`
	TemplateID      uuid.UUID        `json:"template_id"`
	ContentOverride string           `json:"content_override"`
	LeadData        LeadSnapshot     `json:"lead_data_json"`
	UserData        BusinessSnapshot `json:"user_data_json"`
	PaymentDetails  *PaymentTerms    `json:"payment_details_json"`
	UserSignature   string           `json:"user_signature_base64"`
	ClientData      *ClientSnapshot  `json:"client_data_json"`
	ClientSignature string           `json:"signature_base64"`
	ClientIP        string           `json:"client_ip"`
	Status          ContractStatus   `json:"status"`
	ExpiresAt       time.Time        `json:"expires_at"`
	SignedAt        *time.Time       `json:"signed_at"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ContractTemplate edits never propagate to generated contracts: each
// contract keeps its own content override captured at generation time.
type ContractTemplate struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	ContentText string    `json:"content_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Text returns the prose the resolver operates on: the frozen override when
// present, the template body otherwise.
func (c *Contract) Text(template *ContractTemplate) string {
	if c.ContentOverride != "" {
		return c.ContentOverride
	}
	if template != nil {
		return template.ContentText
	}
	return ""
}

// Bundle is the public payload for one token. It carries nothing that can
// pivot to another contract.
type Bundle struct {
	Contract         *Contract         `json:"contract"`
	Template         *ContractTemplate `json:"template"`
	BusinessSettings BusinessSnapshot  `json:"business_settings"`
}
