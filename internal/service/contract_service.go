package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/priceus/contracts-service/internal/clock"
	"github.com/priceus/contracts-service/internal/config"
	"github.com/priceus/contracts-service/internal/model"
	"github.com/priceus/contracts-service/internal/poll"
	"github.com/priceus/contracts-service/internal/schedule"
	"github.com/priceus/contracts-service/internal/template"
	"github.com/priceus/contracts-service/internal/token"
)

type ContractStore interface {
	Create(ctx context.Context, contract *model.Contract) (*model.Contract, error)
	GetByToken(ctx context.Context, token string) (*model.Contract, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSigned(ctx context.Context, id uuid.UUID, client model.ClientSnapshot, signature, clientIP string, signedAt time.Time) (bool, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*model.ContractTemplate, error)
	GetBusinessSettings(ctx context.Context, userID uuid.UUID) (*model.BusinessSettings, error)
}

type ReceivableStore interface {
	CreateBatch(ctx context.Context, receivables []model.Receivable) error
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Receivable, error)
}

type Notifier interface {
	ContractGenerated(ctx context.Context, userID, contractID uuid.UUID, clientName string) error
}

// TaskRunner detaches side effects from the operation that schedules them.
type TaskRunner interface {
	Submit(name string, fn func(ctx context.Context) error)
}

type ScheduleExporter interface {
	Generate(contract *model.Contract, receivables []model.Receivable) ([]byte, error)
}

type ContractService struct {
	contracts   ContractStore
	receivables ReceivableStore
	notifier    Notifier
	tasks       TaskRunner
	exporter    ScheduleExporter
	clock       clock.Clock
	cfg         *config.Config
	log         zerolog.Logger
}

func NewContractService(
	contracts ContractStore,
	receivables ReceivableStore,
	notifier Notifier,
	tasks TaskRunner,
	exporter ScheduleExporter,
	clk clock.Clock,
	cfg *config.Config,
	log zerolog.Logger,
) *ContractService {
	return &ContractService{
		contracts:   contracts,
		receivables: receivables,
		notifier:    notifier,
		tasks:       tasks,
		exporter:    exporter,
		clock:       clk,
		cfg:         cfg,
		log:         log.With().Str("component", "contracts").Logger(),
	}
}

type GenerateInput struct {
	UserID          uuid.UUID
	LeadID          *uuid.UUID
	TemplateID      uuid.UUID
	ContentOverride string
	ValidityDays    int
	Lead            model.LeadSnapshot
	PaymentTerms    *model.PaymentTerms
}

type GenerateResult struct {
	ContractID uuid.UUID `json:"contract_id"`
	Token      string    `json:"token"`
	Link       string    `json:"link"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Generate freezes the lead and business snapshots into a new pending
// contract and returns its shareable token. It refuses to run while the
// professional has no signature on file.
func (s *ContractService) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if input.TemplateID == uuid.Nil {
		return nil, fmt.Errorf("%w: template_id is required", ErrInvalidInput)
	}

	contractTemplate, err := s.contracts.GetTemplate(ctx, input.TemplateID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if contractTemplate.UserID != input.UserID {
		return nil, ErrPermissionDenied
	}

	settings, err := s.contracts.GetBusinessSettings(ctx, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrMissingSignature
		}
		return nil, err
	}
	if strings.TrimSpace(settings.SignatureBase64) == "" {
		return nil, ErrMissingSignature
	}

	publicToken, err := token.New()
	if err != nil {
		return nil, err
	}

	validityDays := s.clampValidity(input.ValidityDays)
	now := s.clock.Now()

	businessSnapshot := settings.BusinessSnapshot
	businessSnapshot.SignatureBase64 = ""

	contentOverride := input.ContentOverride
	if contentOverride == "" {
		contentOverride = contractTemplate.ContentText
	}

	contract := &model.Contract{
		Token:           publicToken,
		UserID:          input.UserID,
		LeadID:          input.LeadID,
		TemplateID:      input.TemplateID,
		ContentOverride: contentOverride,
		LeadData:        input.Lead,
		UserData:        businessSnapshot,
		PaymentDetails:  input.PaymentTerms,
		UserSignature:   settings.SignatureBase64,
		Status:          model.ContractStatusPending,
		ExpiresAt:       now.AddDate(0, 0, validityDays),
	}

	created, err := s.contracts.Create(ctx, contract)
	if err != nil {
		return nil, err
	}

	s.tasks.Submit("notify-contract-generated", func(taskCtx context.Context) error {
		return s.notifier.ContractGenerated(taskCtx, created.UserID, created.ID, created.LeadData.ClientName)
	})

	s.log.Info().
		Str("contract_id", created.ID.String()).
		Int("validity_days", validityDays).
		Msg("contract generated")

	return &GenerateResult{
		ContractID: created.ID,
		Token:      created.Token,
		Link:       s.publicLink(created.Token),
		ExpiresAt:  created.ExpiresAt,
	}, nil
}

// FetchBundle is the token-keyed public read path. Lazy expiration runs
// before the bundle is returned, so an overdue pending contract is already
// expired by the time any caller sees it.
func (s *ContractService) FetchBundle(ctx context.Context, publicToken string) (*model.Bundle, error) {
	contract, err := s.getAndExpire(ctx, publicToken)
	if err != nil {
		return nil, err
	}

	contractTemplate, err := s.contracts.GetTemplate(ctx, contract.TemplateID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	return &model.Bundle{
		Contract:         contract,
		Template:         contractTemplate,
		BusinessSettings: contract.UserData,
	}, nil
}

// Preview resolves the contract prose for display. Signed contracts
// resolve with the stored client snapshot; pending ones leave the client
// placeholders verbatim.
func (s *ContractService) Preview(ctx context.Context, publicToken string) (string, error) {
	bundle, err := s.FetchBundle(ctx, publicToken)
	if err != nil {
		return "", err
	}
	contract := bundle.Contract
	text := contract.Text(bundle.Template)
	return template.Resolve(text, contract.UserData, contract.ClientData, contract.LeadData), nil
}

type SignInput struct {
	Token     string
	Client    model.ClientSnapshot
	Signature string
	ClientIP  string
}

// ApproveAndSign performs the only mutating transition of a contract's
// life. The store-level compare-and-set is the sole concurrency guard: a
// double submission loses the race and observes ErrStateConflict. The
// receivable schedule is materialized as a detached task afterwards — its
// failure never rolls back a legally completed signature.
func (s *ContractService) ApproveAndSign(ctx context.Context, input SignInput) (*model.Contract, error) {
	contract, err := s.getAndExpire(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	switch contract.Status {
	case model.ContractStatusExpired:
		return nil, ErrExpired
	case model.ContractStatusSigned:
		return nil, ErrStateConflict
	}

	if strings.TrimSpace(input.Client.FullName) == "" || strings.TrimSpace(input.Client.CPF) == "" {
		return nil, fmt.Errorf("%w: client name and tax id are required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Signature) == "" {
		return nil, fmt.Errorf("%w: client signature is required", ErrInvalidInput)
	}

	signedAt := s.clock.Now()
	won, err := s.contracts.MarkSigned(ctx, contract.ID, input.Client, input.Signature, input.ClientIP, signedAt)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrStateConflict
	}

	signed, err := s.contracts.GetByID(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	s.tasks.Submit("materialize-receivables", func(taskCtx context.Context) error {
		return s.materializeReceivables(taskCtx, signed, signedAt)
	})

	s.log.Info().Str("contract_id", signed.ID.String()).Msg("contract signed")
	return signed, nil
}

// AwaitSigned is the completion poller: the signing write and the public
// read may be served by different, eventually-consistent paths, so the
// finalize step waits until the transition is observable.
func (s *ContractService) AwaitSigned(ctx context.Context, publicToken string) (*model.Contract, error) {
	var signed *model.Contract

	outcome, err := poll.Until(ctx, s.cfg.Contracts.PollAttempts, s.cfg.Contracts.PollInterval, func(pollCtx context.Context) (bool, error) {
		contract, err := s.contracts.GetByToken(pollCtx, publicToken)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return false, ErrNotFound
			}
			return false, err
		}
		if contract.Status == model.ContractStatusSigned {
			signed = contract
			return true, nil
		}
		return false, nil
	})
	if err != nil && outcome != poll.Cancelled {
		return nil, err
	}

	switch outcome {
	case poll.Ready:
		return signed, nil
	case poll.Cancelled:
		return nil, err
	default:
		return nil, ErrNotReady
	}
}

// VerificationInfo is the human-checkable authenticity display for a
// signed contract.
type VerificationInfo struct {
	ContractID   uuid.UUID  `json:"contract_id"`
	Token        string     `json:"token"`
	BusinessName string     `json:"business_name"`
	SignerName   string     `json:"signer_name"`
	SignerTaxID  string     `json:"signer_tax_id"`
	ClientIP     string     `json:"client_ip"`
	SignedAt     *time.Time `json:"signed_at"`
}

func (s *ContractService) Verify(ctx context.Context, publicToken string) (*VerificationInfo, error) {
	contract, err := s.getAndExpire(ctx, publicToken)
	if err != nil {
		return nil, err
	}
	if contract.Status != model.ContractStatusSigned || contract.ClientData == nil {
		return nil, ErrStateConflict
	}
	return &VerificationInfo{
		ContractID:   contract.ID,
		Token:        contract.Token,
		BusinessName: contract.UserData.BusinessName,
		SignerName:   contract.ClientData.FullName,
		SignerTaxID:  contract.ClientData.CPF,
		ClientIP:     contract.ClientIP,
		SignedAt:     contract.SignedAt,
	}, nil
}

// VerificationURL is the address the authenticity QR code encodes.
func (s *ContractService) VerificationURL(publicToken string) string {
	return fmt.Sprintf("%s/verify/%s", strings.TrimRight(s.cfg.Contracts.PublicBaseURL, "/"), publicToken)
}

// ListReceivables returns the owner-facing schedule of a contract.
func (s *ContractService) ListReceivables(ctx context.Context, userID, contractID uuid.UUID) ([]model.Receivable, error) {
	contract, err := s.ownedContract(ctx, userID, contractID)
	if err != nil {
		return nil, err
	}
	return s.receivables.ListByContract(ctx, contract.ID)
}

type ExportResult struct {
	FileName string
	Content  []byte
}

// ExportReceivables renders a contract's schedule as a workbook.
func (s *ContractService) ExportReceivables(ctx context.Context, userID, contractID uuid.UUID) (*ExportResult, error) {
	contract, err := s.ownedContract(ctx, userID, contractID)
	if err != nil {
		return nil, err
	}
	receivables, err := s.receivables.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	content, err := s.exporter.Generate(contract, receivables)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("receivables-%s.xlsx", contract.ID),
		Content:  content,
	}, nil
}

func (s *ContractService) ownedContract(ctx context.Context, userID, contractID uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if contract.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return contract, nil
}

// getAndExpire loads by token and applies lazy expiration. The transition
// is idempotent: concurrent readers may all attempt it, the conditional
// update lands once, and everyone observes expired.
func (s *ContractService) getAndExpire(ctx context.Context, publicToken string) (*model.Contract, error) {
	if strings.TrimSpace(publicToken) == "" {
		return nil, ErrNotFound
	}
	contract, err := s.contracts.GetByToken(ctx, publicToken)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if contract.Status == model.ContractStatusPending && s.clock.Now().After(contract.ExpiresAt) {
		if _, err := s.contracts.MarkExpired(ctx, contract.ID); err != nil {
			return nil, err
		}
		contract.Status = model.ContractStatusExpired
	}
	return contract, nil
}

func (s *ContractService) materializeReceivables(ctx context.Context, contract *model.Contract, signedAt time.Time) error {
	if contract.PaymentDetails == nil || contract.LeadData.TotalValue <= 0 {
		s.log.Debug().Str("contract_id", contract.ID.String()).Msg("no payment terms or total value, skipping schedule")
		return nil
	}

	receivables := schedule.Schedule(
		contract.ID,
		contract.LeadData.ClientName,
		contract.LeadData.TotalValue,
		*contract.PaymentDetails,
		signedAt,
	)
	if len(receivables) == 0 {
		return nil
	}
	if err := s.receivables.CreateBatch(ctx, receivables); err != nil {
		return fmt.Errorf("create receivables for contract %s: %w", contract.ID, err)
	}
	s.log.Info().
		Str("contract_id", contract.ID.String()).
		Int("receivables", len(receivables)).
		Msg("receivable schedule materialized")
	return nil
}

func (s *ContractService) clampValidity(days int) int {
	if days <= 0 {
		return s.cfg.Contracts.DefaultValidityDays
	}
	if days > s.cfg.Contracts.MaxValidityDays {
		return s.cfg.Contracts.MaxValidityDays
	}
	return days
}

func (s *ContractService) publicLink(publicToken string) string {
	return fmt.Sprintf("%s/contract/%s", strings.TrimRight(s.cfg.Contracts.PublicBaseURL, "/"), publicToken)
}
