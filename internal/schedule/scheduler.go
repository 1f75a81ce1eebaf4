// Package schedule turns a signed contract's total value and payment terms
// into its receivable schedule.
package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/priceus/contracts-service/internal/model"
)

// Amounts below one cent are treated as nothing left to schedule.
const epsilonCents = 1

// Schedule is a pure function from (total, terms, anchor) to an ordered
// receivable list. Sequence 1 is the down payment when the terms produce
// one; installment i falls due i months after the anchor date.
//
// All arithmetic happens in integer cents. The remainder after the down
// payment is split evenly and the last installment absorbs the rounding
// residual, so the amounts always sum exactly to the total.
//
// An installment count of zero with money still remaining schedules
// nothing beyond the down payment: the terms said there are no
// installments, and the scheduler does not invent one.
func Schedule(contractID uuid.UUID, clientName string, total float64, terms model.PaymentTerms, anchor time.Time) []model.Receivable {
	totalCents := toCents(total)
	if totalCents <= 0 {
		return nil
	}

	downCents := downPaymentCents(totalCents, terms)
	if downCents < 0 {
		downCents = 0
	}
	if downCents > totalCents {
		downCents = totalCents
	}
	remainingCents := totalCents - downCents

	count := 0
	if downCents > 0 {
		count++
	}
	installments := terms.InstallmentCount
	if installments > 0 && remainingCents >= epsilonCents {
		count += installments
	} else {
		installments = 0
	}
	if count == 0 {
		return nil
	}

	anchorDay := dateOnly(anchor)
	receivables := make([]model.Receivable, 0, count)
	sequence := 1

	if downCents > 0 {
		receivables = append(receivables, model.Receivable{
			ContractID:     contractID,
			SequenceNumber: sequence,
			TotalCount:     count,
			Amount:         fromCents(downCents),
			DueDate:        anchorDay,
			Description:    fmt.Sprintf("Entrada - Contrato %s", clientName),
			PaymentMethod:  terms.Name,
			Status:         model.ReceivableStatusPending,
		})
		sequence++
	}

	if installments > 0 {
		per := remainingCents / int64(installments)
		for i := 1; i <= installments; i++ {
			amount := per
			if i == installments {
				amount = remainingCents - per*int64(installments-1)
			}
			receivables = append(receivables, model.Receivable{
				ContractID:     contractID,
				SequenceNumber: sequence,
				TotalCount:     count,
				Amount:         fromCents(amount),
				DueDate:        anchorDay.AddDate(0, i, 0),
				Description:    fmt.Sprintf("Parcela %d/%d - Contrato %s", i, installments, clientName),
				PaymentMethod:  terms.Name,
				Status:         model.ReceivableStatusPending,
			})
			sequence++
		}
	}

	return receivables
}

func downPaymentCents(totalCents int64, terms model.PaymentTerms) int64 {
	switch terms.DownPaymentMode {
	case model.DownPaymentPercent:
		return int64(math.Round(float64(totalCents) * terms.DownPaymentAmount / 100))
	default:
		return toCents(terms.DownPaymentAmount)
	}
}

func toCents(value float64) int64 {
	return int64(math.Round(value * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
