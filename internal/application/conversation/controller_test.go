package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domainconv "github.com/garyjia/factura-chat/internal/domain/conversation"
	"github.com/garyjia/factura-chat/internal/domain/entity"
	"github.com/garyjia/factura-chat/internal/domain/event"
	"github.com/garyjia/factura-chat/internal/invoice"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fullRequest = "Factura B para María García DNI 30123456 por $25000"
	testRequest = "Factura C de prueba por $1000"
)

type fakeInvoicing struct {
	mu         sync.Mutex
	submitted  []entity.InvoiceRecord
	submitFunc func(ctx context.Context, rec entity.InvoiceRecord) (*entity.InvoiceResult, error)
	healthFunc func(ctx context.Context) (*entity.HealthStatus, error)
}

func (f *fakeInvoicing) Submit(ctx context.Context, rec entity.InvoiceRecord) (*entity.InvoiceResult, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, rec)
	f.mu.Unlock()

	if f.submitFunc != nil {
		return f.submitFunc(ctx, rec)
	}
	return &entity.InvoiceResult{Success: true, Invoice: issuedFrom(rec)}, nil
}

func (f *fakeInvoicing) CheckHealth(ctx context.Context) (*entity.HealthStatus, error) {
	if f.healthFunc != nil {
		return f.healthFunc(ctx)
	}
	return &entity.HealthStatus{Success: true, Message: "ok"}, nil
}

func (f *fakeInvoicing) submissions() []entity.InvoiceRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.InvoiceRecord(nil), f.submitted...)
}

func issuedFrom(rec entity.InvoiceRecord) *entity.IssuedInvoice {
	return &entity.IssuedInvoice{
		Number:      "FB-001-00000001",
		Date:        "2026-10-18",
		Customer:    rec.Customer,
		Amount:      *rec.Amount,
		VoucherType: rec.VoucherType,
		Concept:     entity.ConceptServices,
		CAE:         "12345678901234",
		CAEExpiry:   "2026-10-28",
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) DispatchAsync(_ context.Context, evt *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type extractorFunc func(text string) invoice.Result

func (f extractorFunc) Extract(text string) invoice.Result {
	return f(text)
}

func newTestController(t *testing.T, inv *fakeInvoicing, opts Options) (*Controller, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	c := NewController("session-1", Dependencies{
		Invoicing: inv,
		Publisher: pub,
		Options:   opts,
	})
	c.Start(context.Background())
	return c, pub
}

func lastText(st State) string {
	if len(st.Messages) == 0 {
		return ""
	}
	return st.Messages[len(st.Messages)-1].Text
}

func TestController_PartialRequestAsksForCustomer(t *testing.T) {
	c, _ := newTestController(t, &fakeInvoicing{}, Options{})

	st, err := c.Send(context.Background(), testRequest)
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageCollecting, st.Stage)
	assert.False(t, st.DemoMode)
	require.NotNil(t, st.Record.Amount)
	assert.True(t, st.Record.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, entity.VoucherTypeC, st.Record.VoucherType)
	assert.True(t, strings.HasSuffix(lastText(st), "¿Cuál es el nombre del cliente?"))
	assert.Contains(t, lastText(st), "Importe: $1.000")

	require.Len(t, st.Messages, 2)
	assert.Equal(t, entity.SpeakerUser, st.Messages[0].Speaker)
	assert.Equal(t, entity.SpeakerAssistant, st.Messages[1].Speaker)
}

func TestController_LargeAmountAsksForDocument(t *testing.T) {
	inv := &fakeInvoicing{}
	c, _ := newTestController(t, inv, Options{})

	st, err := c.Send(context.Background(), "Factura B para Juan Pérez por $ 1500000")
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageCollecting, st.Stage)
	assert.Empty(t, st.Record.Customer.Document)
	require.NotNil(t, st.Record.Amount)
	assert.True(t, st.Record.Amount.Equal(decimal.NewFromInt(1500000)))
	assert.NotContains(t, lastText(st), "Documento:")
	assert.True(t, strings.HasSuffix(lastText(st), "¿Cuál es el número de documento del cliente?"))

	st, err = c.Send(context.Background(), "DNI 30123456")
	require.NoError(t, err)
	assert.Equal(t, domainconv.StageConfirming, st.Stage)
	assert.Equal(t, "30123456", st.Record.Customer.Document)
	assert.Empty(t, inv.submissions())
}

func TestController_CompleteRequestAsksForConfirmation(t *testing.T) {
	c, _ := newTestController(t, &fakeInvoicing{}, Options{})

	st, err := c.Send(context.Background(), fullRequest)
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageConfirming, st.Stage)
	want := "Perfecto, estos son los datos:\n\n" +
		"Cliente: María García\n" +
		"Documento: DNI 30123456\n" +
		"Importe: $25.000\n" +
		"Tipo: Factura B\n\n" +
		"¿Confirmas la emisión?"
	assert.Equal(t, want, lastText(st))

	last := st.Messages[len(st.Messages)-1]
	require.NotNil(t, last.Record)
	assert.Equal(t, "María García", last.Record.Customer.Name)
}

func TestController_FieldsAccumulateAcrossTurns(t *testing.T) {
	c, _ := newTestController(t, &fakeInvoicing{}, Options{})
	ctx := context.Background()

	st, err := c.Send(ctx, "Factura B por $25000")
	require.NoError(t, err)
	assert.Equal(t, domainconv.StageCollecting, st.Stage)

	st, err = c.Send(ctx, "cliente María García DNI 30123456")
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageConfirming, st.Stage)
	assert.Equal(t, "María García", st.Record.Customer.Name)
	assert.Equal(t, entity.VoucherTypeB, st.Record.VoucherType)
	require.NotNil(t, st.Record.Amount)
	assert.True(t, st.Record.Amount.Equal(decimal.NewFromInt(25000)))
}

func TestController_AffirmationSubmits(t *testing.T) {
	inv := &fakeInvoicing{}
	c, pub := newTestController(t, inv, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)

	st, err := c.Send(ctx, "sí")
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageCompleted, st.Stage)
	assert.True(t, st.Record.IsEmpty())
	require.NotNil(t, st.LastInvoice)
	assert.Equal(t, "FB-001-00000001", st.LastInvoice.Number)

	require.Len(t, inv.submissions(), 1)
	assert.Equal(t, "30123456", inv.submissions()[0].Customer.Document)

	texts := make([]string, 0, len(st.Messages))
	for _, m := range st.Messages {
		texts = append(texts, m.Text)
	}
	assert.Contains(t, texts, MsgProcessing)
	assert.True(t, strings.HasPrefix(lastText(st), "¡Factura emitida!\n\n"))
	assert.Contains(t, lastText(st), "CAE: 12345678901234")
	assert.Contains(t, pub.types(), event.TypeInvoiceIssued)
}

func TestController_NonAffirmationStartsOver(t *testing.T) {
	inv := &fakeInvoicing{}
	c, _ := newTestController(t, inv, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)

	st, err := c.Send(ctx, "no, cambiar importe")
	require.NoError(t, err)

	assert.Empty(t, inv.submissions())
	assert.Equal(t, domainconv.StageCollecting, st.Stage)
	assert.Nil(t, st.Record.Amount)
	assert.Empty(t, st.Record.Customer.Name)
}

func TestController_NonAffirmationWithNewRequest(t *testing.T) {
	c, _ := newTestController(t, &fakeInvoicing{}, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)

	st, err := c.Send(ctx, "Factura A para Juan Pérez CUIT 20123456789 por $5000")
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageConfirming, st.Stage)
	assert.Equal(t, "Juan Pérez", st.Record.Customer.Name)
	assert.Equal(t, entity.DocumentKindCUIT, st.Record.Customer.DocumentKind)
	assert.Equal(t, entity.VoucherTypeA, st.Record.VoucherType)
}

func TestController_RejectedSubmission(t *testing.T) {
	inv := &fakeInvoicing{
		submitFunc: func(context.Context, entity.InvoiceRecord) (*entity.InvoiceResult, error) {
			return &entity.InvoiceResult{Success: false, Error: "timeout"}, nil
		},
	}
	c, pub := newTestController(t, inv, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)
	st, err := c.Send(ctx, "confirmo")
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageCompleted, st.Stage)
	assert.True(t, st.Record.IsEmpty())
	assert.Nil(t, st.LastInvoice)
	assert.Equal(t, "No se pudo emitir la factura: timeout", lastText(st))
	assert.Contains(t, pub.types(), event.TypeSubmissionFailed)
}

func TestController_SubmissionError(t *testing.T) {
	inv := &fakeInvoicing{
		submitFunc: func(context.Context, entity.InvoiceRecord) (*entity.InvoiceResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	c, _ := newTestController(t, inv, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)
	st, err := c.Send(ctx, "ok")
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageCompleted, st.Stage)
	assert.Equal(t, "Error inesperado: connection refused", lastText(st))
}

func TestController_SubmitTimeout(t *testing.T) {
	inv := &fakeInvoicing{
		submitFunc: func(ctx context.Context, _ entity.InvoiceRecord) (*entity.InvoiceResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	c, _ := newTestController(t, inv, Options{SubmitTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)
	st, err := c.Send(ctx, "sí")
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageCompleted, st.Stage)
	assert.Contains(t, lastText(st), context.DeadlineExceeded.Error())
	assert.False(t, st.Processing)
}

func TestController_SubmissionPanicStillCompletes(t *testing.T) {
	inv := &fakeInvoicing{
		submitFunc: func(context.Context, entity.InvoiceRecord) (*entity.InvoiceResult, error) {
			panic("backend exploded")
		},
	}
	c, _ := newTestController(t, inv, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)
	st, err := c.Send(ctx, "sí")
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageCompleted, st.Stage)
	assert.True(t, st.Record.IsEmpty())
	assert.Equal(t, "Error inesperado: backend exploded", lastText(st))
	assert.False(t, c.Processing())
}

func TestController_CompletedStartsNewCycle(t *testing.T) {
	c, _ := newTestController(t, &fakeInvoicing{}, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)
	st, err := c.Send(ctx, "sí")
	require.NoError(t, err)
	require.Equal(t, domainconv.StageCompleted, st.Stage)

	st, err = c.Send(ctx, testRequest)
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageCollecting, st.Stage)
	assert.Empty(t, st.Record.Customer.Name)
	assert.Nil(t, st.LastInvoice)
}

func TestController_BusyWhileSubmitting(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	inv := &fakeInvoicing{
		submitFunc: func(_ context.Context, rec entity.InvoiceRecord) (*entity.InvoiceResult, error) {
			close(started)
			<-release
			return &entity.InvoiceResult{Success: true, Invoice: issuedFrom(rec)}, nil
		},
	}
	c, _ := newTestController(t, inv, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)

	done := make(chan State, 1)
	go func() {
		st, _ := c.Send(ctx, "sí")
		done <- st
	}()
	<-started

	st, err := c.Send(ctx, "otra factura")
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, st.Processing)
	assert.Equal(t, domainconv.StageGenerating, st.Stage)

	_, err = c.Reset(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	final := <-done
	assert.Equal(t, domainconv.StageCompleted, final.Stage)
	for _, m := range final.Messages {
		assert.NotEqual(t, "otra factura", m.Text)
	}
}

func TestController_EmptyMessage(t *testing.T) {
	c, _ := newTestController(t, &fakeInvoicing{}, Options{})

	st, err := c.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, st.Messages)
	assert.Equal(t, domainconv.StageInitial, st.Stage)
}

func TestController_ExtractionFailureKeepsStage(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewController("s", Dependencies{
		Extractor: extractorFunc(func(string) invoice.Result { panic("bad pattern") }),
		Invoicing: &fakeInvoicing{},
		Publisher: pub,
	})

	st, err := c.Send(context.Background(), fullRequest)
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageInitial, st.Stage)
	assert.Equal(t, MsgExtractionError, lastText(st))
	assert.True(t, st.Record.IsEmpty())
	assert.NotContains(t, pub.types(), event.TypeStageChanged)
}

func TestController_DemoModeWhenBackendDown(t *testing.T) {
	inv := &fakeInvoicing{
		healthFunc: func(context.Context) (*entity.HealthStatus, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	c, pub := newTestController(t, inv, Options{})
	ctx := context.Background()

	st := c.State()
	assert.True(t, st.DemoMode)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, MsgOffline, st.Messages[0].Text)
	assert.Contains(t, pub.types(), event.TypeSessionStarted)

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)
	st, err = c.Send(ctx, "sí")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(lastText(st), "¡Factura emitida! (Demo)"))
}

func TestController_UnhealthyStatusEnablesDemo(t *testing.T) {
	inv := &fakeInvoicing{
		healthFunc: func(context.Context) (*entity.HealthStatus, error) {
			return &entity.HealthStatus{Success: false, Error: "HTTP error! status: 503"}, nil
		},
	}
	c, _ := newTestController(t, inv, Options{})
	assert.True(t, c.State().DemoMode)
}

func TestController_TestModeDefaults(t *testing.T) {
	c, _ := newTestController(t, &fakeInvoicing{}, Options{TestModeDefaults: true})

	st, err := c.Send(context.Background(), testRequest)
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageConfirming, st.Stage)
	assert.Equal(t, "Cliente Prueba", st.Record.Customer.Name)
	assert.True(t, st.Record.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, entity.VoucherTypeC, st.Record.VoucherType)
}

func TestController_Reset(t *testing.T) {
	c, pub := newTestController(t, &fakeInvoicing{}, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, testRequest)
	require.NoError(t, err)

	st, err := c.Reset(ctx)
	require.NoError(t, err)

	assert.Equal(t, domainconv.StageInitial, st.Stage)
	assert.Empty(t, st.Messages)
	assert.True(t, st.Record.IsEmpty())
	assert.Contains(t, pub.types(), event.TypeSessionCleared)
}

func TestController_StageEvents(t *testing.T) {
	c, pub := newTestController(t, &fakeInvoicing{}, Options{})
	ctx := context.Background()

	_, err := c.Send(ctx, fullRequest)
	require.NoError(t, err)
	_, err = c.Send(ctx, "sí")
	require.NoError(t, err)

	var stages []string
	pub.mu.Lock()
	for _, e := range pub.events {
		if e.Type == event.TypeStageChanged {
			stages = append(stages, e.GetPayloadString("to"))
		}
	}
	pub.mu.Unlock()

	assert.Equal(t, []string{"CONFIRMING", "GENERATING", "COMPLETED"}, stages)
}
