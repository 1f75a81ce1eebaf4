package model

import "github.com/google/uuid"

// Snapshot payloads are historical copies captured once at contract
// generation. JSON keys keep the wire names the platform has always used,
// so older stored contracts keep decoding.

// BusinessSnapshot freezes the professional's business identity.
type BusinessSnapshot struct {
	BusinessName    string `json:"business_name"`
	PersonType      string `json:"person_type"` // "fisica" or "juridica"
	CPF             string `json:"cpf"`
	CNPJ            string `json:"cnpj"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	ZipCode         string `json:"zip_code"`
	PixKey          string `json:"pix_key"`
	BankName        string `json:"bank_name"`
	BankAgency      string `json:"bank_agency"`
	BankAccount     string `json:"bank_account"`
	BankAccountType string `json:"bank_account_type"`
	SignatureBase64 string `json:"signature_base64,omitempty"`
}

// TaxID returns CPF or CNPJ depending on the person type.
func (b BusinessSnapshot) TaxID() string {
	if b.PersonType == "fisica" {
		return b.CPF
	}
	return b.CNPJ
}

// SelectedProduct is one quoted item inside a lead snapshot.
type SelectedProduct struct {
	Name     string  `json:"nome"`
	Price    float64 `json:"preco"`
	Quantity int     `json:"quantidade"`
}

// LeadSnapshot freezes the client contact, event metadata and the computed
// price breakdown of the quote the contract was generated from.
type LeadSnapshot struct {
	ClientName        string            `json:"nome_cliente"`
	Email             string            `json:"email"`
	Phone             string            `json:"telefone"`
	EventType         string            `json:"tipo_evento"`
	EventDate         string            `json:"data_evento"` // "2006-01-02"
	EventCity         string            `json:"cidade_evento"`
	Subtotal          float64           `json:"subtotal"`
	TotalValue        float64           `json:"valor_total"`
	Products          []SelectedProduct `json:"produtos"`
	CouponDiscount    float64           `json:"desconto_cupom"`
	PaymentSurcharge  float64           `json:"acrescimo_pagamento"`
	SeasonalAdjust    float64           `json:"ajuste_sazonal"`
	GeographicAdjust  float64           `json:"ajuste_geografico"`
	PaymentMethodName string            `json:"forma_pagamento"`
}

// ClientSnapshot is the signer's personal data, null until signing.
type ClientSnapshot struct {
	FullName string `json:"nome_completo"`
	CPF      string `json:"cpf"`
	Email    string `json:"email"`
	Phone    string `json:"telefone"`
	Address  string `json:"endereco"`
}

// Down-payment modes of a payment-method descriptor.
const (
	DownPaymentPercent = "percentual"
	DownPaymentFixed   = "fixo"
)

// PaymentTerms is the payment-method descriptor chosen at quote time and
// consumed by the installment scheduler after signing.
type PaymentTerms struct {
	Name              string  `json:"nome"`
	DownPaymentMode   string  `json:"entrada_tipo"` // percentual | fixo
	DownPaymentAmount float64 `json:"entrada_valor"`
	InstallmentCount  int     `json:"max_parcelas"`
}

// BusinessSettings is the professional's live settings row. Generation
// copies it into a BusinessSnapshot; later edits never reach old contracts.
type BusinessSettings struct {
	UserID uuid.UUID `json:"user_id"`
	BusinessSnapshot
}
