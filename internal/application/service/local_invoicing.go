package service

import (
	"context"
	"errors"

	"github.com/garyjia/factura-chat/internal/application/port"
	"github.com/garyjia/factura-chat/internal/domain/entity"
)

// LocalInvoicing lets a conversation submit straight to an in-process IssuingService,
// with the same result shape the HTTP billing client produces
type LocalInvoicing struct {
	issuer IssuingService
}

// NewLocalInvoicing creates an in-process invoicing adapter
func NewLocalInvoicing(issuer IssuingService) *LocalInvoicing {
	return &LocalInvoicing{issuer: issuer}
}

// Submit issues the invoice; validation failures become an unsuccessful result
func (l *LocalInvoicing) Submit(ctx context.Context, record entity.InvoiceRecord) (*entity.InvoiceResult, error) {
	inv, err := l.issuer.Issue(ctx, record)
	if errors.Is(err, ErrMissingRequiredFields) || errors.Is(err, ErrInvalidDocument) {
		return &entity.InvoiceResult{Success: false, Error: err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity.InvoiceResult{Success: true, Invoice: inv}, nil
}

// CheckHealth reports the issuer health; an in-process issuer is always reachable
func (l *LocalInvoicing) CheckHealth(ctx context.Context) (*entity.HealthStatus, error) {
	return l.issuer.Health(ctx), nil
}

var _ port.InvoicingService = (*LocalInvoicing)(nil)
