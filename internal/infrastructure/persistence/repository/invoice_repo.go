package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/factura-chat/internal/application/port"
	"github.com/garyjia/factura-chat/internal/domain/entity"
	"github.com/garyjia/factura-chat/internal/infrastructure/persistence/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const invoiceColumns = `id, number, issue_date, customer_name, customer_document, document_kind,
	amount, voucher_type, concept, description, cae, cae_expiry, created_at`

// IssuedInvoiceRepository implements port.IssuedInvoiceRepository
type IssuedInvoiceRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewIssuedInvoiceRepository creates a new issued invoice repository
func NewIssuedInvoiceRepository(db *sqlite.DB, logger *zap.Logger) *IssuedInvoiceRepository {
	return &IssuedInvoiceRepository{db: db, logger: logger}
}

// NextSequence increments and returns the counter of a voucher type
func (r *IssuedInvoiceRepository) NextSequence(ctx context.Context, voucherType entity.VoucherType) (int64, error) {
	query := `
		INSERT INTO invoice_sequences (voucher_type, last_number) VALUES (?, 1)
		ON CONFLICT(voucher_type) DO UPDATE SET last_number = last_number + 1
		RETURNING last_number
	`

	var next int64
	if err := r.db.Executor(ctx).QueryRowContext(ctx, query, string(voucherType)).Scan(&next); err != nil {
		r.logger.Error("Failed to reserve invoice number", zap.String("voucher_type", string(voucherType)), zap.Error(err))
		return 0, fmt.Errorf("failed to reserve invoice number: %w", err)
	}
	return next, nil
}

// Create inserts an issued invoice and sets its ID
func (r *IssuedInvoiceRepository) Create(ctx context.Context, inv *entity.IssuedInvoice) error {
	query := `
		INSERT INTO issued_invoices (
			number, issue_date, customer_name, customer_document, document_kind,
			amount, voucher_type, concept, description, cae, cae_expiry, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		inv.Number,
		inv.Date,
		inv.Customer.Name,
		inv.Customer.Document,
		string(inv.Customer.DocumentKind),
		inv.Amount.String(),
		string(inv.VoucherType),
		string(inv.Concept),
		inv.Description,
		inv.CAE,
		inv.CAEExpiry,
		inv.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create issued invoice", zap.String("number", inv.Number), zap.Error(err))
		return fmt.Errorf("failed to create issued invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	inv.ID = id
	return nil
}

// GetByNumber retrieves an invoice by its formatted number
func (r *IssuedInvoiceRepository) GetByNumber(ctx context.Context, number string) (*entity.IssuedInvoice, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM issued_invoices WHERE number = ?`, number)

	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoice %s: %w", number, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issued invoice: %w", err)
	}
	return inv, nil
}

// List returns issued invoices newest first
func (r *IssuedInvoiceRepository) List(ctx context.Context, limit, offset int) ([]*entity.IssuedInvoice, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM issued_invoices ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list issued invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list issued invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.IssuedInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issued invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(s scanner) (*entity.IssuedInvoice, error) {
	var (
		inv                            entity.IssuedInvoice
		kind, amount, voucher, concept string
	)

	err := s.Scan(
		&inv.ID,
		&inv.Number,
		&inv.Date,
		&inv.Customer.Name,
		&inv.Customer.Document,
		&kind,
		&amount,
		&voucher,
		&concept,
		&inv.Description,
		&inv.CAE,
		&inv.CAEExpiry,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	inv.Customer.DocumentKind = entity.DocumentKind(kind)
	inv.VoucherType = entity.VoucherType(voucher)
	inv.Concept = entity.Concept(concept)
	return &inv, nil
}

var _ port.IssuedInvoiceRepository = (*IssuedInvoiceRepository)(nil)
