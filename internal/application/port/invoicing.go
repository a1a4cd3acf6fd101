package port

import (
	"context"

	"github.com/garyjia/factura-chat/internal/domain/entity"
)

// InvoicingService submits collected invoice data to the billing backend.
// A rejected invoice is reported through InvoiceResult.Success; the error
// return is reserved for failures the caller could not have avoided.
type InvoicingService interface {
	Submit(ctx context.Context, record entity.InvoiceRecord) (*entity.InvoiceResult, error)
	CheckHealth(ctx context.Context) (*entity.HealthStatus, error)
}

// AuthorityInfo exposes the read-only tax authority endpoints
type AuthorityInfo interface {
	AuthorityStatus(ctx context.Context) (*entity.AuthorityStatus, error)
	VoucherTypes(ctx context.Context) ([]entity.VoucherTypeInfo, error)
}
