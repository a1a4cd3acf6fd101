package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/factura-chat/internal/application/port"
	"github.com/garyjia/factura-chat/internal/domain/entity"
)

type mockInvoiceRepo struct {
	mu       sync.Mutex
	seq      map[entity.VoucherType]int64
	invoices []*entity.IssuedInvoice

	nextSequenceFunc func(ctx context.Context, voucherType entity.VoucherType) (int64, error)
	createFunc       func(ctx context.Context, inv *entity.IssuedInvoice) error
	listFunc         func(ctx context.Context, limit, offset int) ([]*entity.IssuedInvoice, error)
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{seq: make(map[entity.VoucherType]int64)}
}

func (m *mockInvoiceRepo) NextSequence(ctx context.Context, voucherType entity.VoucherType) (int64, error) {
	if m.nextSequenceFunc != nil {
		return m.nextSequenceFunc(ctx, voucherType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[voucherType]++
	return m.seq[voucherType], nil
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *entity.IssuedInvoice) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, inv)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = int64(len(m.invoices) + 1)
	m.invoices = append(m.invoices, inv)
	return nil
}

func (m *mockInvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.IssuedInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("invoice %s: %w", number, port.ErrNotFound)
}

func (m *mockInvoiceRepo) List(ctx context.Context, limit, offset int) ([]*entity.IssuedInvoice, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.IssuedInvoice
	for i := len(m.invoices) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.invoices[i])
	}
	return out, nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockLogger struct{}

func (mockLogger) Info(string, ...interface{})  {}
func (mockLogger) Error(string, ...interface{}) {}
