package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/priceus/contracts-service/internal/http/middleware"
	"github.com/priceus/contracts-service/internal/model"
	"github.com/priceus/contracts-service/internal/service"
	"github.com/priceus/contracts-service/internal/verify"
)

type Handler struct {
	contracts *service.ContractService
	log       zerolog.Logger
}

func NewHandler(contracts *service.ContractService, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	// The token is the sole credential on the public surface; no other
	// per-field endpoints exist.
	public := router.Group("/")
	public.GET("/contract/:token", h.fetchBundle)
	public.GET("/contract/:token/preview", h.preview)
	public.POST("/contract/:token/sign", h.sign)
	public.GET("/contract/:token/complete", h.complete)
	public.GET("/verify/:token", h.verify)
	public.GET("/verify/:token/qr", h.verifyQR)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.POST("/contracts", h.generate)
	protected.GET("/contracts/:id/receivables", h.listReceivables)
	protected.GET("/contracts/:id/receivables/export", h.exportReceivables)
}

type generateRequest struct {
	TemplateID      string              `json:"template_id" binding:"required"`
	LeadID          string              `json:"lead_id"`
	ContentOverride string              `json:"content_override"`
	ValidityDays    int                 `json:"validity_days"`
	LeadData        model.LeadSnapshot  `json:"lead_data"`
	PaymentDetails  *model.PaymentTerms `json:"payment_details"`
}

func (h *Handler) generate(c *gin.Context) {
	userID, ok := middleware.MustUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	templateID, err := uuid.Parse(strings.TrimSpace(req.TemplateID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template_id"})
		return
	}

	var leadID *uuid.UUID
	if strings.TrimSpace(req.LeadID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(req.LeadID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead_id"})
			return
		}
		leadID = &parsed
	}

	result, err := h.contracts.Generate(c.Request.Context(), service.GenerateInput{
		UserID:          userID,
		LeadID:          leadID,
		TemplateID:      templateID,
		ContentOverride: req.ContentOverride,
		ValidityDays:    req.ValidityDays,
		Lead:            req.LeadData,
		PaymentTerms:    req.PaymentDetails,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) fetchBundle(c *gin.Context) {
	bundle, err := h.contracts.FetchBundle(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func (h *Handler) preview(c *gin.Context) {
	resolved, err := h.contracts.Preview(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": resolved})
}

type signRequest struct {
	ClientData      model.ClientSnapshot `json:"client_data" binding:"required"`
	SignatureBase64 string               `json:"signature_base64" binding:"required"`
}

func (h *Handler) sign(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	signed, err := h.contracts.ApproveAndSign(c.Request.Context(), service.SignInput{
		Token:     c.Param("token"),
		Client:    req.ClientData,
		Signature: req.SignatureBase64,
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": signed.Status, "signed_at": signed.SignedAt})
}

func (h *Handler) complete(c *gin.Context) {
	signed, err := h.contracts.AwaitSigned(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.Status(http.StatusRequestTimeout)
			return
		}
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           signed.Status,
		"client_data_json": signed.ClientData,
		"signature_base64": signed.ClientSignature,
	})
}

func (h *Handler) verify(c *gin.Context) {
	info, err := h.contracts.Verify(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) verifyQR(c *gin.Context) {
	// The QR is only meaningful for a contract that exists and is signed.
	if _, err := h.contracts.Verify(c.Request.Context(), c.Param("token")); err != nil {
		h.handleError(c, err)
		return
	}
	png, err := verify.QRPNG(h.contracts.VerificationURL(c.Param("token")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) listReceivables(c *gin.Context) {
	userID, ok := middleware.MustUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	receivables, err := h.contracts.ListReceivables(c.Request.Context(), userID, contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receivables": receivables})
}

func (h *Handler) exportReceivables(c *gin.Context) {
	userID, ok := middleware.MustUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	result, err := h.contracts.ExportReceivables(c.Request.Context(), userID, contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	const sheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, sheetMIME, result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrMissingSignature):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("contract request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
