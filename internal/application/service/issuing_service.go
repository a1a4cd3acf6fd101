package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/garyjia/factura-chat/internal/application/port"
	"github.com/garyjia/factura-chat/internal/domain/entity"
	"github.com/garyjia/factura-chat/pkg/utils"
)

// ErrMissingRequiredFields is returned when a record lacks customer name, document or amount
var ErrMissingRequiredFields = errors.New("Faltan datos requeridos: cliente, documento e importe")

// ErrInvalidDocument is returned when the customer DNI or CUIT is malformed
var ErrInvalidDocument = errors.New("Documento inválido")

const (
	dateLayout     = "2006-01-02"
	caeValidity    = 10 * 24 * time.Hour
	caeUpperBound  = int64(100_000_000_000_000)
	defaultPOS     = 1
	defaultEnvName = "development"
)

// IssuingService is the simulated tax authority: it validates, numbers and registers invoices
type IssuingService interface {
	Issue(ctx context.Context, record entity.InvoiceRecord) (*entity.IssuedInvoice, error)
	Get(ctx context.Context, number string) (*entity.IssuedInvoice, error)
	List(ctx context.Context, limit, offset int) ([]*entity.IssuedInvoice, error)
	Health(ctx context.Context) *entity.HealthStatus
	port.AuthorityInfo
}

// IssuingOption configures the issuing service
type IssuingOption func(*issuingServiceImpl)

// WithPointOfSale sets the point of sale printed in invoice numbers
func WithPointOfSale(pos int) IssuingOption {
	return func(s *issuingServiceImpl) {
		if pos > 0 {
			s.pointOfSale = pos
		}
	}
}

// WithEnvironment sets the environment reported by AuthorityStatus
func WithEnvironment(env string) IssuingOption {
	return func(s *issuingServiceImpl) {
		if env != "" {
			s.environment = env
		}
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) IssuingOption {
	return func(s *issuingServiceImpl) {
		s.now = now
	}
}

// WithCAESource replaces the random authorization code generator
func WithCAESource(next func() int64) IssuingOption {
	return func(s *issuingServiceImpl) {
		s.nextCAE = next
	}
}

type issuingServiceImpl struct {
	repo        port.IssuedInvoiceRepository
	txManager   port.TransactionManager
	logger      Logger
	pointOfSale int
	environment string
	now         func() time.Time
	nextCAE     func() int64
}

// NewIssuingService creates a new IssuingService
func NewIssuingService(
	repo port.IssuedInvoiceRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...IssuingOption,
) IssuingService {
	s := &issuingServiceImpl{
		repo:        repo,
		txManager:   txManager,
		logger:      orNop(logger),
		pointOfSale: defaultPOS,
		environment: defaultEnvName,
		now:         time.Now,
		nextCAE:     func() int64 { return rand.Int63n(caeUpperBound) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue applies backend defaults, reserves a number and stores the invoice in one transaction
func (s *issuingServiceImpl) Issue(ctx context.Context, record entity.InvoiceRecord) (*entity.IssuedInvoice, error) {
	if !record.Submittable() {
		s.logger.Info("Rejected invoice with missing data",
			"has_name", record.Customer.Name != "",
			"has_document", record.Customer.Document != "",
			"has_amount", record.Amount != nil)
		return nil, ErrMissingRequiredFields
	}
	if err := utils.ValidateDocument(string(record.Customer.DocumentKind), record.Customer.Document); err != nil {
		s.logger.Info("Rejected invoice with invalid document", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	record = withBackendDefaults(record)
	now := s.now()

	inv := &entity.IssuedInvoice{
		Date:        now.Format(dateLayout),
		Customer:    record.Customer,
		Amount:      *record.Amount,
		VoucherType: record.VoucherType,
		Concept:     record.Concept,
		Description: record.Description,
		CAE:         fmt.Sprintf("%014d", s.nextCAE()%caeUpperBound),
		CAEExpiry:   now.Add(caeValidity).Format(dateLayout),
		CreatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		seq, err := s.repo.NextSequence(ctx, inv.VoucherType)
		if err != nil {
			return err
		}
		inv.Number = FormatNumber(inv.VoucherType, s.pointOfSale, seq)
		return s.repo.Create(ctx, inv)
	})
	if err != nil {
		s.logger.Error("Failed to issue invoice", "error", err)
		return nil, fmt.Errorf("issue invoice: %w", err)
	}

	s.logger.Info("Invoice issued",
		"number", inv.Number,
		"voucher_type", inv.VoucherType,
		"amount", inv.Amount.String())
	return inv, nil
}

func (s *issuingServiceImpl) Get(ctx context.Context, number string) (*entity.IssuedInvoice, error) {
	inv, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (s *issuingServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.IssuedInvoice, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	invoices, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (s *issuingServiceImpl) Health(ctx context.Context) *entity.HealthStatus {
	return &entity.HealthStatus{
		Success:   true,
		Message:   "Servidor de facturación funcionando",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
}

func (s *issuingServiceImpl) AuthorityStatus(ctx context.Context) (*entity.AuthorityStatus, error) {
	return &entity.AuthorityStatus{
		Success: true,
		Status:  "online",
		Services: map[string]string{
			"wsfe":             "authorized",
			"ws_sr_padron_a13": "authorized",
			"ws_sr_padron_a4":  "authorized",
		},
		Environment: s.environment,
	}, nil
}

func (s *issuingServiceImpl) VoucherTypes(ctx context.Context) ([]entity.VoucherTypeInfo, error) {
	return append([]entity.VoucherTypeInfo(nil), entity.VoucherCatalogue...), nil
}

// FormatNumber renders F<letter>-<point of sale>-<sequence>, e.g. FC-001-00000042
func FormatNumber(voucherType entity.VoucherType, pointOfSale int, seq int64) string {
	return fmt.Sprintf("F%s-%03d-%08d", voucherType, pointOfSale, seq)
}

func withBackendDefaults(r entity.InvoiceRecord) entity.InvoiceRecord {
	if r.VoucherType == "" {
		r.VoucherType = entity.DefaultVoucherType
	}
	if r.Concept == "" {
		r.Concept = entity.DefaultConcept
	}
	if r.Description == "" {
		r.Description = entity.DefaultDescription
	}
	return r
}
