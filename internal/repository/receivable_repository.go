package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/priceus/contracts-service/internal/model"
)

type ReceivableRepository struct {
	db *gorm.DB
}

func NewReceivableRepository(db *gorm.DB) *ReceivableRepository {
	return &ReceivableRepository{db: db}
}

// CreateBatch inserts a contract's full schedule in one transaction. The
// unique (contract_id, sequence_number) index rejects a duplicate schedule
// if the signing side effect ever runs twice.
func (r *ReceivableRepository) CreateBatch(ctx context.Context, receivables []model.Receivable) error {
	if len(receivables) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, receivable := range receivables {
			err := tx.Exec(`
				INSERT INTO receivables (
					contract_id,
					sequence_number,
					total_count,
					amount,
					due_date,
					description,
					payment_method,
					status
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`,
				receivable.ContractID,
				receivable.SequenceNumber,
				receivable.TotalCount,
				receivable.Amount,
				receivable.DueDate,
				receivable.Description,
				receivable.PaymentMethod,
				receivable.Status,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ReceivableRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Receivable, error) {
	var rows []struct {
		ID             uuid.UUID
		ContractID     uuid.UUID
		SequenceNumber int
		TotalCount     int
		Amount         float64
		DueDate        time.Time
		Description    string
		PaymentMethod  string
		Status         string
		CreatedAt      time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			contract_id,
			sequence_number,
			total_count,
			amount,
			due_date,
			description,
			payment_method,
			status,
			created_at
		FROM receivables
		WHERE contract_id = ?
		ORDER BY sequence_number ASC
	`, contractID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	receivables := make([]model.Receivable, 0, len(rows))
	for _, row := range rows {
		receivables = append(receivables, model.Receivable{
			ID:             row.ID,
			ContractID:     row.ContractID,
			SequenceNumber: row.SequenceNumber,
			TotalCount:     row.TotalCount,
			Amount:         row.Amount,
			DueDate:        row.DueDate,
			Description:    row.Description,
			PaymentMethod:  row.PaymentMethod,
			Status:         model.ReceivableStatus(row.Status),
			CreatedAt:      row.CreatedAt,
		})
	}
	return receivables, nil
}
