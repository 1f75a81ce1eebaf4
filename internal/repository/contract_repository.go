package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/priceus/contracts-service/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

type contractRow struct {
	ID              uuid.UUID
	Token           string
	UserID          uuid.UUID
	LeadID          *uuid.UUID
	TemplateID      uuid.UUID
	ContentOverride string
	LeadData        []byte
	UserData        []byte
	PaymentDetails  []byte
	UserSignature   string
	ClientData      []byte
	ClientSignature *string
	ClientIP        *string
	Status          string
	ExpiresAt       time.Time
	SignedAt        *time.Time
	CreatedAt       time.Time
}

const contractColumns = `
	c.id,
	c.token,
	c.user_id,
	c.lead_id,
	c.template_id,
	c.content_override,
	c.lead_data_json AS lead_data,
	c.user_data_json AS user_data,
	c.payment_details_json AS payment_details,
	c.user_signature_base64 AS user_signature,
	c.client_data_json AS client_data,
	c.signature_base64 AS client_signature,
	c.client_ip,
	c.status,
	c.expires_at,
	c.signed_at,
	c.created_at
`

func (r *ContractRepository) Create(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	leadData, err := json.Marshal(contract.LeadData)
	if err != nil {
		return nil, fmt.Errorf("marshal lead snapshot: %w", err)
	}
	userData, err := json.Marshal(contract.UserData)
	if err != nil {
		return nil, fmt.Errorf("marshal business snapshot: %w", err)
	}
	var paymentDetails []byte
	if contract.PaymentDetails != nil {
		paymentDetails, err = json.Marshal(contract.PaymentDetails)
		if err != nil {
			return nil, fmt.Errorf("marshal payment terms: %w", err)
		}
	}

	var row contractRow
	err = r.db.WithContext(ctx).Raw(`
		INSERT INTO contracts (
			token,
			user_id,
			lead_id,
			template_id,
			content_override,
			lead_data_json,
			user_data_json,
			payment_details_json,
			user_signature_base64,
			status,
			expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)
		RETURNING id, token, user_id, lead_id, template_id, content_override,
			lead_data_json AS lead_data, user_data_json AS user_data,
			payment_details_json AS payment_details,
			user_signature_base64 AS user_signature,
			client_data_json AS client_data, signature_base64 AS client_signature,
			client_ip, status, expires_at, signed_at, created_at
	`,
		contract.Token,
		contract.UserID,
		contract.LeadID,
		contract.TemplateID,
		contract.ContentOverride,
		leadData,
		userData,
		paymentDetails,
		contract.UserSignature,
		contract.ExpiresAt,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return rowToContract(row)
}

func (r *ContractRepository) GetByToken(ctx context.Context, token string) (*model.Contract, error) {
	var row contractRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+contractColumns+` FROM contracts c WHERE c.token = ?`, token,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return rowToContract(row)
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var row contractRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+contractColumns+` FROM contracts c WHERE c.id = ?`, id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return rowToContract(row)
}

// MarkExpired flips a pending contract to expired. The status guard makes
// it idempotent, so concurrent readers can all evaluate lazy expiration.
func (r *ContractRepository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET status = 'expired'
		WHERE id = ? AND status = 'pending'
	`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkSigned performs the signing transition with compare-and-set
// semantics: the update only lands while the stored status is still
// pending, so of two concurrent submissions exactly one wins.
func (r *ContractRepository) MarkSigned(
	ctx context.Context,
	id uuid.UUID,
	client model.ClientSnapshot,
	signature string,
	clientIP string,
	signedAt time.Time,
) (bool, error) {
	clientData, err := json.Marshal(client)
	if err != nil {
		return false, fmt.Errorf("marshal client snapshot: %w", err)
	}

	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET status = 'signed',
			client_data_json = ?,
			signature_base64 = ?,
			client_ip = ?,
			signed_at = ?
		WHERE id = ? AND status = 'pending'
	`, clientData, signature, clientIP, signedAt, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ContractRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*model.ContractTemplate, error) {
	var row struct {
		ID          uuid.UUID
		UserID      uuid.UUID
		Name        string
		ContentText string
		CreatedAt   time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, user_id, name, content_text, created_at
		FROM contract_templates
		WHERE id = ?
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.ContractTemplate{
		ID:          row.ID,
		UserID:      row.UserID,
		Name:        row.Name,
		ContentText: row.ContentText,
		CreatedAt:   row.CreatedAt,
	}, nil
}

func (r *ContractRepository) GetBusinessSettings(ctx context.Context, userID uuid.UUID) (*model.BusinessSettings, error) {
	var row struct {
		UserID          uuid.UUID
		BusinessName    string
		PersonType      string
		CPF             string
		CNPJ            string
		Email           string
		Phone           string
		Address         string
		City            string
		State           string
		ZipCode         string
		PixKey          string
		BankName        string
		BankAgency      string
		BankAccount     string
		BankAccountType string
		SignatureBase64 string
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			user_id,
			business_name,
			person_type,
			cpf,
			cnpj,
			email,
			phone,
			address,
			city,
			state,
			zip_code,
			pix_key,
			bank_name,
			bank_agency,
			bank_account,
			bank_account_type,
			signature_base64
		FROM business_settings
		WHERE user_id = ?
	`, userID).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.UserID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.BusinessSettings{
		UserID: row.UserID,
		BusinessSnapshot: model.BusinessSnapshot{
			BusinessName:    row.BusinessName,
			PersonType:      row.PersonType,
			CPF:             row.CPF,
			CNPJ:            row.CNPJ,
			Email:           row.Email,
			Phone:           row.Phone,
			Address:         row.Address,
			City:            row.City,
			State:           row.State,
			ZipCode:         row.ZipCode,
			PixKey:          row.PixKey,
			BankName:        row.BankName,
			BankAgency:      row.BankAgency,
			BankAccount:     row.BankAccount,
			BankAccountType: row.BankAccountType,
			SignatureBase64: row.SignatureBase64,
		},
	}, nil
}

func rowToContract(row contractRow) (*model.Contract, error) {
	contract := &model.Contract{
		ID:              row.ID,
		Token:           row.Token,
		UserID:          row.UserID,
		LeadID:          row.LeadID,
		TemplateID:      row.TemplateID,
		ContentOverride: row.ContentOverride,
		UserSignature:   row.UserSignature,
		Status:          model.ContractStatus(row.Status),
		ExpiresAt:       row.ExpiresAt,
		SignedAt:        row.SignedAt,
		CreatedAt:       row.CreatedAt,
	}
	if row.ClientSignature != nil {
		contract.ClientSignature = *row.ClientSignature
	}
	if row.ClientIP != nil {
		contract.ClientIP = *row.ClientIP
	}

	if len(row.LeadData) > 0 {
		if err := json.Unmarshal(row.LeadData, &contract.LeadData); err != nil {
			return nil, fmt.Errorf("decode lead snapshot: %w", err)
		}
	}
	if len(row.UserData) > 0 {
		if err := json.Unmarshal(row.UserData, &contract.UserData); err != nil {
			return nil, fmt.Errorf("decode business snapshot: %w", err)
		}
	}
	if len(row.PaymentDetails) > 0 {
		var terms model.PaymentTerms
		if err := json.Unmarshal(row.PaymentDetails, &terms); err != nil {
			return nil, fmt.Errorf("decode payment terms: %w", err)
		}
		contract.PaymentDetails = &terms
	}
	if len(row.ClientData) > 0 {
		var client model.ClientSnapshot
		if err := json.Unmarshal(row.ClientData, &client); err != nil {
			return nil, fmt.Errorf("decode client snapshot: %w", err)
		}
		contract.ClientData = &client
	}
	return contract, nil
}
