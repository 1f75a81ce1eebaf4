package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/priceus/contracts-service/internal/clock"
	"github.com/priceus/contracts-service/internal/config"
	"github.com/priceus/contracts-service/internal/excel"
	"github.com/priceus/contracts-service/internal/logger"
	"github.com/priceus/contracts-service/internal/model"
	"github.com/priceus/contracts-service/internal/task"
)

// memoryStore mimics the repository including the compare-and-set
// semantics of the signing update.
type memoryStore struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*model.Contract
	byToken   map[string]uuid.UUID
	templates map[uuid.UUID]*model.ContractTemplate
	settings  map[uuid.UUID]*model.BusinessSettings
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		contracts: make(map[uuid.UUID]*model.Contract),
		byToken:   make(map[string]uuid.UUID),
		templates: make(map[uuid.UUID]*model.ContractTemplate),
		settings:  make(map[uuid.UUID]*model.BusinessSettings),
	}
}

func copyContract(c *model.Contract) *model.Contract {
	dup := *c
	if c.ClientData != nil {
		client := *c.ClientData
		dup.ClientData = &client
	}
	if c.PaymentDetails != nil {
		terms := *c.PaymentDetails
		dup.PaymentDetails = &terms
	}
	if c.SignedAt != nil {
		signedAt := *c.SignedAt
		dup.SignedAt = &signedAt
	}
	return &dup
}

func (s *memoryStore) Create(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyContract(contract)
	stored.ID = uuid.New()
	s.contracts[stored.ID] = stored
	s.byToken[stored.Token] = stored.ID
	return copyContract(stored), nil
}

func (s *memoryStore) GetByToken(ctx context.Context, token string) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyContract(s.contracts[id]), nil
}

func (s *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contract, ok := s.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyContract(contract), nil
}

func (s *memoryStore) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contract, ok := s.contracts[id]
	if !ok || contract.Status != model.ContractStatusPending {
		return false, nil
	}
	contract.Status = model.ContractStatusExpired
	return true, nil
}

func (s *memoryStore) MarkSigned(ctx context.Context, id uuid.UUID, client model.ClientSnapshot, signature, clientIP string, signedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contract, ok := s.contracts[id]
	if !ok || contract.Status != model.ContractStatusPending {
		return false, nil
	}
	contract.Status = model.ContractStatusSigned
	contract.ClientData = &client
	contract.ClientSignature = signature
	contract.ClientIP = clientIP
	contract.SignedAt = &signedAt
	return true, nil
}

func (s *memoryStore) GetTemplate(ctx context.Context, id uuid.UUID) (*model.ContractTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	template, ok := s.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	dup := *template
	return &dup, nil
}

func (s *memoryStore) GetBusinessSettings(ctx context.Context, userID uuid.UUID) (*model.BusinessSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	dup := *settings
	return &dup, nil
}

type memoryReceivables struct {
	mu    sync.Mutex
	items []model.Receivable
	fail  error
}

func (s *memoryReceivables) CreateBatch(ctx context.Context, receivables []model.Receivable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.items = append(s.items, receivables...)
	return nil
}

func (s *memoryReceivables) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Receivable
	for _, r := range s.items {
		if r.ContractID == contractID {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) ContractGenerated(ctx context.Context, userID, contractID uuid.UUID, clientName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, clientName)
	return nil
}

type fixture struct {
	service     *ContractService
	store       *memoryStore
	receivables *memoryReceivables
	notifier    *recordingNotifier
	tasks       *task.Runner
	clock       *clock.Manual

	userID     uuid.UUID
	templateID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemoryStore()
	receivables := &memoryReceivables{}
	notifier := &recordingNotifier{}
	log := logger.New("test")
	tasks := task.NewRunner(log, 5*time.Second)
	clk := clock.NewManual(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	cfg := &config.Config{
		Environment: "test",
		Contracts: config.ContractsConfig{
			PublicBaseURL:       "https://app.test",
			DefaultValidityDays: 7,
			MaxValidityDays:     30,
			PollAttempts:        3,
			PollInterval:        time.Millisecond,
		},
	}

	userID := uuid.New()
	templateID := uuid.New()
	store.templates[templateID] = &model.ContractTemplate{
		ID:          templateID,
		UserID:      userID,
		Name:        "Contrato de prestação de serviços",
		ContentText: "Contratada {{nome_empresa}} e contratante {{nome_cliente}}, valor {{valor_total}}.",
	}
	store.settings[userID] = &model.BusinessSettings{
		UserID: userID,
		BusinessSnapshot: model.BusinessSnapshot{
			BusinessName:    "Foto Studio Luz",
			PersonType:      "juridica",
			CNPJ:            "12.345.678/0001-90",
			SignatureBase64: "data:image/png;base64,assinatura",
		},
	}

	svc := NewContractService(store, receivables, notifier, tasks, excel.NewGenerator(), clk, cfg, log)
	return &fixture{
		service:     svc,
		store:       store,
		receivables: receivables,
		notifier:    notifier,
		tasks:       tasks,
		clock:       clk,
		userID:      userID,
		templateID:  templateID,
	}
}

func (f *fixture) generateInput() GenerateInput {
	return GenerateInput{
		UserID:     f.userID,
		TemplateID: f.templateID,
		Lead: model.LeadSnapshot{
			ClientName:        "Maria Souza",
			TotalValue:        1000,
			PaymentMethodName: "Pix parcelado",
		},
		PaymentTerms: &model.PaymentTerms{
			Name:              "Pix parcelado",
			DownPaymentMode:   model.DownPaymentPercent,
			DownPaymentAmount: 30,
			InstallmentCount:  3,
		},
	}
}

func (f *fixture) generate(t *testing.T) *GenerateResult {
	t.Helper()
	result, err := f.service.Generate(context.Background(), f.generateInput())
	require.NoError(t, err)
	return result
}

func (f *fixture) signInput(token string) SignInput {
	return SignInput{
		Token:     token,
		Client:    model.ClientSnapshot{FullName: "Maria de Souza Lima", CPF: "123.456.789-00"},
		Signature: "data:image/png;base64,cliente",
		ClientIP:  "203.0.113.7",
	}
}

func TestGenerateRefusedWithoutProfessionalSignature(t *testing.T) {
	f := newFixture(t)
	f.store.settings[f.userID].SignatureBase64 = ""

	_, err := f.service.Generate(context.Background(), f.generateInput())

	assert.ErrorIs(t, err, ErrMissingSignature)
	assert.Empty(t, f.store.contracts, "no contract record may be created")
}

func TestGenerateRefusedWithoutSettingsRow(t *testing.T) {
	f := newFixture(t)
	delete(f.store.settings, f.userID)

	_, err := f.service.Generate(context.Background(), f.generateInput())
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestGenerateCreatesPendingContract(t *testing.T) {
	f := newFixture(t)

	result := f.generate(t)

	assert.Len(t, result.Token, 43)
	assert.Equal(t, "https://app.test/contract/"+result.Token, result.Link)
	assert.Equal(t, f.clock.Now().AddDate(0, 0, 7), result.ExpiresAt, "default validity is 7 days")

	bundle, err := f.service.FetchBundle(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusPending, bundle.Contract.Status)
	assert.Equal(t, "Foto Studio Luz", bundle.BusinessSettings.BusinessName)
	assert.Equal(t, "data:image/png;base64,assinatura", bundle.Contract.UserSignature)
	assert.Empty(t, bundle.Contract.UserData.SignatureBase64, "signature lives in its own column, not the snapshot")
	assert.Nil(t, bundle.Contract.ClientData)

	f.tasks.Wait()
	assert.Equal(t, []string{"Maria Souza"}, f.notifier.events)
}

func TestGenerateSnapshotsAreFrozen(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)

	// Later edits to live settings and template must not reach the
	// generated contract.
	f.store.settings[f.userID].BusinessName = "Outro Nome"
	f.store.templates[f.templateID].ContentText = "texto novo"

	bundle, err := f.service.FetchBundle(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "Foto Studio Luz", bundle.BusinessSettings.BusinessName)
	assert.Contains(t, bundle.Contract.ContentOverride, "{{nome_empresa}}")

	resolved, err := f.service.Preview(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Contains(t, resolved, "Foto Studio Luz")
	assert.NotContains(t, resolved, "texto novo")
}

func TestGenerateClampsValidityDays(t *testing.T) {
	f := newFixture(t)
	input := f.generateInput()
	input.ValidityDays = 90

	result, err := f.service.Generate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().AddDate(0, 0, 30), result.ExpiresAt)
}

func TestGenerateForeignTemplateDenied(t *testing.T) {
	f := newFixture(t)
	input := f.generateInput()
	input.UserID = uuid.New()
	f.store.settings[input.UserID] = &model.BusinessSettings{
		UserID:           input.UserID,
		BusinessSnapshot: model.BusinessSnapshot{SignatureBase64: "sig"},
	}

	_, err := f.service.Generate(context.Background(), input)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFetchBundleUnknownToken(t *testing.T) {
	f := newFixture(t)
	f.generate(t)

	_, err := f.service.FetchBundle(context.Background(), "nao-existe")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.FetchBundle(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLazyExpirationOnRead(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)

	f.clock.Set(result.ExpiresAt.Add(time.Second))

	bundle, err := f.service.FetchBundle(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusExpired, bundle.Contract.Status)

	// And the transition is persisted, not just decorated on the way out.
	stored, err := f.store.GetByToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusExpired, stored.Status)

	_, err = f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestApproveAndSignValidation(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)

	missingName := f.signInput(result.Token)
	missingName.Client.FullName = "  "
	_, err := f.service.ApproveAndSign(context.Background(), missingName)
	assert.ErrorIs(t, err, ErrInvalidInput)

	missingSignature := f.signInput(result.Token)
	missingSignature.Signature = ""
	_, err = f.service.ApproveAndSign(context.Background(), missingSignature)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bundle, err := f.service.FetchBundle(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusPending, bundle.Contract.Status)
}

func TestApproveAndSignHappyPath(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)

	signed, err := f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	require.NoError(t, err)

	assert.Equal(t, model.ContractStatusSigned, signed.Status)
	require.NotNil(t, signed.SignedAt)
	assert.Equal(t, f.clock.Now(), *signed.SignedAt)
	require.NotNil(t, signed.ClientData)
	assert.Equal(t, "Maria de Souza Lima", signed.ClientData.FullName)
	assert.Equal(t, "203.0.113.7", signed.ClientIP)

	f.tasks.Wait()
	receivables, err := f.receivables.ListByContract(context.Background(), signed.ID)
	require.NoError(t, err)
	require.Len(t, receivables, 4)
	assert.Equal(t, 300.0, receivables[0].Amount)
	assert.Equal(t, 233.34, receivables[3].Amount)

	total := 0.0
	for _, r := range receivables {
		total += r.Amount
	}
	assert.InDelta(t, 1000, total, 0.001)

	// No transition leaves signed.
	_, err = f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestConcurrentSigningExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := f.signInput(result.Token)
			input.Client.FullName = "Assinante"
			_, errs[i] = f.service.ApproveAndSign(context.Background(), input)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrStateConflict)
		}
	}
	assert.Equal(t, 1, winners, "exactly one submission may win the race")

	f.tasks.Wait()
	stored, err := f.store.GetByToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusSigned, stored.Status)

	receivables, err := f.receivables.ListByContract(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Len(t, receivables, 4, "exactly one schedule materialized")
}

func TestSchedulingFailureDoesNotUnsign(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)
	f.receivables.fail = gorm.ErrInvalidTransaction

	signed, err := f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	require.NoError(t, err, "a bookkeeping failure never blocks the signing event")

	f.tasks.Wait()
	stored, err := f.store.GetByID(context.Background(), signed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusSigned, stored.Status)
	assert.Empty(t, f.receivables.items)
}

func TestSigningWithoutPaymentTermsSkipsSchedule(t *testing.T) {
	f := newFixture(t)
	input := f.generateInput()
	input.PaymentTerms = nil
	result, err := f.service.Generate(context.Background(), input)
	require.NoError(t, err)

	signed, err := f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	require.NoError(t, err)

	f.tasks.Wait()
	receivables, err := f.receivables.ListByContract(context.Background(), signed.ID)
	require.NoError(t, err)
	assert.Empty(t, receivables)
}

func TestAwaitSignedReady(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)
	_, err := f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	require.NoError(t, err)

	signed, err := f.service.AwaitSigned(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusSigned, signed.Status)
}

func TestAwaitSignedBudgetExhausted(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)

	_, err := f.service.AwaitSigned(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestAwaitSignedUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.AwaitSigned(context.Background(), "nao-existe")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAwaitSignedCancelled(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.AwaitSigned(ctx, result.Token)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)

	_, err := f.service.Verify(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrStateConflict, "pending contracts have no authenticity display")

	_, err = f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	require.NoError(t, err)

	info, err := f.service.Verify(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "Maria de Souza Lima", info.SignerName)
	assert.Equal(t, "123.456.789-00", info.SignerTaxID)
	assert.Equal(t, "203.0.113.7", info.ClientIP)
	assert.Equal(t, "Foto Studio Luz", info.BusinessName)
	require.NotNil(t, info.SignedAt)

	assert.Equal(t, "https://app.test/verify/"+result.Token, f.service.VerificationURL(result.Token))
}

func TestListReceivablesOwnership(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)
	signed, err := f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	require.NoError(t, err)
	f.tasks.Wait()

	receivables, err := f.service.ListReceivables(context.Background(), f.userID, signed.ID)
	require.NoError(t, err)
	assert.Len(t, receivables, 4)

	_, err = f.service.ListReceivables(context.Background(), uuid.New(), signed.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.service.ListReceivables(context.Background(), f.userID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportReceivables(t *testing.T) {
	f := newFixture(t)
	result := f.generate(t)
	signed, err := f.service.ApproveAndSign(context.Background(), f.signInput(result.Token))
	require.NoError(t, err)
	f.tasks.Wait()

	export, err := f.service.ExportReceivables(context.Background(), f.userID, signed.ID)
	require.NoError(t, err)
	assert.Equal(t, "receivables-"+signed.ID.String()+".xlsx", export.FileName)
	assert.True(t, bytes.HasPrefix(export.Content, []byte("PK")), "xlsx is a zip container")
}
