package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/factura-chat/internal/application/port"
	"github.com/garyjia/factura-chat/internal/application/service"
	"github.com/garyjia/factura-chat/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// GenerateInvoiceRequest is the body of POST /api/generate-invoice
type GenerateInvoiceRequest struct {
	InvoiceData entity.InvoiceRecord `json:"invoiceData"`
}

// VoucherTypesResponse is the body of GET /api/voucher-types
type VoucherTypesResponse struct {
	Success      bool                     `json:"success"`
	VoucherTypes []entity.VoucherTypeInfo `json:"voucherTypes"`
}

// ListInvoicesRequest represents query parameters for listing invoices
type ListInvoicesRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// BillingHandlers serve the mock billing backend
type BillingHandlers struct {
	issuer   service.IssuingService
	exporter Exporter
	logger   Logger
}

// NewBillingHandlers creates the billing handlers
func NewBillingHandlers(issuer service.IssuingService, exporter Exporter, logger Logger) *BillingHandlers {
	return &BillingHandlers{
		issuer:   issuer,
		exporter: exporter,
		logger:   logger,
	}
}

// Health handles GET /api/health
func (h *BillingHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.issuer.Health(c.Request.Context()))
}

// GenerateInvoice handles POST /api/generate-invoice
func (h *BillingHandlers) GenerateInvoice(c *gin.Context) {
	var req GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid invoice request", "error", err)
		c.JSON(http.StatusBadRequest, entity.InvoiceResult{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	inv, err := h.issuer.Issue(c.Request.Context(), req.InvoiceData)
	if err != nil {
		if errors.Is(err, service.ErrMissingRequiredFields) || errors.Is(err, service.ErrInvalidDocument) {
			c.JSON(http.StatusBadRequest, entity.InvoiceResult{
				Success: false,
				Error:   err.Error(),
			})
			return
		}

		h.logger.Error("Failed to issue invoice", "error", err)
		c.JSON(http.StatusInternalServerError, entity.InvoiceResult{
			Success: false,
			Error:   "Error interno del servidor",
		})
		return
	}

	h.logger.Info("Invoice issued", "number", inv.Number, "amount", inv.Amount.String())
	c.JSON(http.StatusOK, entity.InvoiceResult{Success: true, Invoice: inv})
}

// AuthorityStatus handles GET /api/afip-status
func (h *BillingHandlers) AuthorityStatus(c *gin.Context) {
	status, err := h.issuer.AuthorityStatus(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get authority status", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// VoucherTypes handles GET /api/voucher-types
func (h *BillingHandlers) VoucherTypes(c *gin.Context) {
	types, err := h.issuer.VoucherTypes(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list voucher types", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, VoucherTypesResponse{Success: true, VoucherTypes: types})
}

// ListInvoices handles GET /api/invoices
func (h *BillingHandlers) ListInvoices(c *gin.Context) {
	var req ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	invoices, err := h.issuer.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("Failed to list invoices", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to list invoices",
		})
		return
	}
	if invoices == nil {
		invoices = []*entity.IssuedInvoice{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// GetInvoice handles GET /api/invoices/:number
func (h *BillingHandlers) GetInvoice(c *gin.Context) {
	number := c.Param("number")

	inv, err := h.issuer.Get(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
			return
		}
		h.logger.Error("Failed to get invoice", "number", number, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to get invoice"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// ExportInvoices handles GET /api/invoices/export
func (h *BillingHandlers) ExportInvoices(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotImplemented, Response{Success: false, Error: "export not configured"})
		return
	}

	data, err := h.exporter.ExportLedgerXLSX(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export ledger", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to export invoices"})
		return
	}

	filename := fmt.Sprintf("facturas_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
