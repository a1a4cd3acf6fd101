package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/factura-chat/internal/application/conversation"
	"github.com/garyjia/factura-chat/internal/application/dispatcher"
	"github.com/garyjia/factura-chat/internal/application/service"
	domainconv "github.com/garyjia/factura-chat/internal/domain/conversation"
	"github.com/garyjia/factura-chat/internal/domain/entity"
	"github.com/garyjia/factura-chat/internal/infrastructure/persistence/repository"
	"github.com/garyjia/factura-chat/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/factura-chat/pkg/database"
)

type testLogger struct{}

func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}

type chatEnvelope struct {
	Success bool               `json:"success"`
	Data    conversation.State `json:"data"`
	Error   string             `json:"error"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	sqlDB, err := database.Open(database.Config{Path: database.MemoryPath, MaxOpenConns: 1}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.NewMigrator(sqlDB, logger).Migrate())

	db := sqlite.NewDB(sqlDB, logger)
	repo := repository.NewIssuedInvoiceRepository(db, logger)
	issuer := service.NewIssuingService(repo, db, testLogger{},
		service.WithClock(func() time.Time { return time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC) }),
		service.WithCAESource(func() int64 { return 42 }))

	events := dispatcher.NewDispatcher()
	t.Cleanup(func() { _ = events.Close() })
	activity := service.NewActivityService(testLogger{})
	activity.Register(events)

	factory := conversation.NewFactory(conversation.Dependencies{
		Invoicing: service.NewLocalInvoicing(issuer),
		Publisher: events,
		Logger:    logger,
	})

	return NewServer(DefaultServerConfig(), Services{
		Issuer:   issuer,
		Exporter: service.NewExportService(repo, testLogger{}),
		Sessions: conversation.NewManager(factory, logger, conversation.WithManagerPublisher(events)),
		Activity: activity,
	}, testLogger{})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body entity.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Servidor de facturación funcionando", body.Message)
}

func TestGenerateInvoice(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/generate-invoice", map[string]any{
		"invoiceData": map[string]any{
			"cliente": map[string]any{"nombre": "María García", "documento": "30123456", "tipoDocumento": "DNI"},
			"importe": 25000,
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result entity.InvoiceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)
	require.NotNil(t, result.Invoice)
	assert.Equal(t, "FC-001-00000001", result.Invoice.Number)
	assert.Equal(t, entity.ConceptServices, result.Invoice.Concept)
	assert.Equal(t, "Servicios profesionales", result.Invoice.Description)
	assert.Equal(t, "00000000000042", result.Invoice.CAE)
	assert.Equal(t, "2026-10-28", result.Invoice.CAEExpiry)

	rec = doJSON(t, s, http.MethodGet, "/api/invoices/FC-001-00000001", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/invoices/FC-001-99999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateInvoice_MissingFields(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/generate-invoice", map[string]any{
		"invoiceData": map[string]any{"importe": 100},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var result entity.InvoiceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, "Faltan datos requeridos: cliente, documento e importe", result.Error)
}

func TestGenerateInvoice_BadBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-invoice", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateInvoice_InvalidDocument(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/generate-invoice", map[string]any{
		"invoiceData": map[string]any{
			"cliente": map[string]any{"nombre": "Ana", "documento": "123", "tipoDocumento": "DNI"},
			"importe": 100,
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Documento inválido")
}

func TestAuthorityStatusAndVoucherTypes(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/afip-status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status entity.AuthorityStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "online", status.Status)
	assert.Equal(t, "authorized", status.Services["wsfe"])

	rec = doJSON(t, s, http.MethodGet, "/api/voucher-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var types VoucherTypesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.True(t, types.Success)
	require.Len(t, types.VoucherTypes, 6)
	assert.Equal(t, 1, types.VoucherTypes[0].Code)
}

func TestChatFlow(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/chat/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created chatEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.ID
	require.NotEmpty(t, id)
	assert.False(t, created.Data.DemoMode)

	path := "/api/chat/sessions/" + id + "/messages"

	rec = doJSON(t, s, http.MethodPost, path, SendMessageRequest{Text: "Factura B para María García DNI 30123456 por $25000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st chatEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, domainconv.StageConfirming, st.Data.Stage)

	rec = doJSON(t, s, http.MethodPost, path, SendMessageRequest{Text: "sí"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, domainconv.StageCompleted, st.Data.Stage)
	require.NotNil(t, st.Data.LastInvoice)
	assert.Equal(t, "FB-001-00000001", st.Data.LastInvoice.Number)

	rec = doJSON(t, s, http.MethodGet, "/api/invoices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "FB-001-00000001")

	rec = doJSON(t, s, http.MethodPost, "/api/chat/sessions/"+id+"/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, domainconv.StageInitial, st.Data.Stage)
	assert.Empty(t, st.Data.Messages)

	rec = doJSON(t, s, http.MethodDelete, "/api/chat/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/chat/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/chat/sessions/unknown/messages", SendMessageRequest{Text: "hola"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/chat/sessions", nil)
	var created chatEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, s, http.MethodPost, "/api/chat/sessions/"+created.Data.ID+"/messages", SendMessageRequest{Text: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatStats(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/chat/sessions", nil)

	require.Eventually(t, func() bool {
		rec := doJSON(t, s, http.MethodGet, "/api/chat/stats", nil)
		var body struct {
			Data service.ActivityStats `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			return false
		}
		return body.Data.SessionsStarted == 1
	}, time.Second, 5*time.Millisecond)
}

func TestExportInvoices(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/generate-invoice", map[string]any{
		"invoiceData": map[string]any{
			"cliente": map[string]any{"nombre": "Ana", "documento": "20123456789", "tipoDocumento": "CUIT"},
			"importe": "1500.50",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/invoices/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "facturas_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Facturas")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "FC-001-00000001", rows[1][0])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-invoice", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
