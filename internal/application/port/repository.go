package port

import (
	"context"
	"errors"

	"github.com/garyjia/factura-chat/internal/domain/entity"
)

// ErrNotFound is returned by repositories when the requested row does not exist
var ErrNotFound = errors.New("not found")

// IssuedInvoiceRepository defines persistence operations for IssuedInvoice
type IssuedInvoiceRepository interface {
	// NextSequence reserves the next invoice number for a voucher type
	NextSequence(ctx context.Context, voucherType entity.VoucherType) (int64, error)

	Create(ctx context.Context, invoice *entity.IssuedInvoice) error
	GetByNumber(ctx context.Context, number string) (*entity.IssuedInvoice, error)

	// List returns invoices newest first
	List(ctx context.Context, limit, offset int) ([]*entity.IssuedInvoice, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
