package fraud

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/trust-risk/internal/deviceip"
	"github.com/richxcame/trust-risk/pkg/common"
	"github.com/richxcame/trust-risk/pkg/middleware"
)

// RiskService is the engine surface the handler needs.
type RiskService interface {
	AnalyzeTransaction(ctx context.Context, req AnalyzeRequest) (*FraudDetectionResult, error)
	ReanalyzeTransaction(ctx context.Context, req AnalyzeRequest) (*FraudDetectionResult, error)
	GetCachedResult(ctx context.Context, transactionID string) (*FraudDetectionResult, bool, error)
	AssessDeviceIPRisk(ctx context.Context, userID, ip, deviceFingerprint, email string) (*deviceip.DeviceIPRiskAssessment, error)
	VerdictHistory(ctx context.Context, transactionID string, limit int) ([]*VerdictRecord, error)
}

var _ RiskService = (*Engine)(nil)

// Handler handles HTTP requests for risk scoring
type Handler struct {
	service RiskService
}

// NewHandler creates a new risk handler
func NewHandler(service RiskService) *Handler {
	return &Handler{service: service}
}

// AnalyzeTransaction returns the verdict for a transaction, cached if live
// POST /api/v1/risk/transactions/analyze
func (h *Handler) AnalyzeTransaction(c *gin.Context) {
	var req AnalyzeRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}
	fillRequestContext(c, &req.IPAddress, &req.UserAgent)

	result, err := h.service.AnalyzeTransaction(c.Request.Context(), req)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.SuccessResponse(c, result)
}

// ReanalyzeTransaction computes a fresh verdict and replaces the cached one
// POST /api/v1/risk/transactions/:id/reanalyze
func (h *Handler) ReanalyzeTransaction(c *gin.Context) {
	var body ReanalyzeRequest
	if !middleware.ValidateAndBind(c, &body) {
		return
	}

	req := AnalyzeRequest{
		TransactionID:     c.Param("id"),
		UserID:            body.UserID,
		IPAddress:         body.IPAddress,
		UserAgent:         body.UserAgent,
		DeviceFingerprint: body.DeviceFingerprint,
		Email:             body.Email,
	}
	fillRequestContext(c, &req.IPAddress, &req.UserAgent)

	result, err := h.service.ReanalyzeTransaction(c.Request.Context(), req)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.SuccessResponse(c, result)
}

// GetResult returns the cached verdict for a transaction
// GET /api/v1/risk/transactions/:id
func (h *Handler) GetResult(c *gin.Context) {
	result, ok, err := h.service.GetCachedResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	if !ok {
		common.ErrorResponse(c, http.StatusNotFound, "no cached verdict for transaction")
		return
	}

	common.SuccessResponse(c, result)
}

// GetHistory lists recorded verdicts for a transaction
// GET /api/v1/risk/transactions/:id/history
func (h *Handler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid limit")
		return
	}

	records, err := h.service.VerdictHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.SuccessResponseWithMeta(c, records, &common.Meta{Limit: limit, Total: int64(len(records))})
}

// AssessDeviceIP runs the composite device/IP assessment
// POST /api/v1/risk/device-ip/assess
func (h *Handler) AssessDeviceIP(c *gin.Context) {
	var req AssessRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}
	var ua string
	fillRequestContext(c, &req.IPAddress, &ua)

	assessment, err := h.service.AssessDeviceIPRisk(c.Request.Context(), req.UserID, req.IPAddress, req.DeviceFingerprint, req.Email)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.SuccessResponse(c, assessment)
}

// RegisterRoutes registers risk routes
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	risk := r.Group("/api/v1/risk")
	{
		risk.POST("/transactions/analyze", h.AnalyzeTransaction)
		risk.POST("/transactions/:id/reanalyze", h.ReanalyzeTransaction)
		risk.GET("/transactions/:id", h.GetResult)
		risk.GET("/transactions/:id/history", h.GetHistory)
		risk.POST("/device-ip/assess", h.AssessDeviceIP)
	}
}

// fillRequestContext falls back to the connection's IP and user agent when
// the caller did not supply them.
func fillRequestContext(c *gin.Context, ip, userAgent *string) {
	if *ip == "" {
		*ip = c.ClientIP()
	}
	if *userAgent == "" {
		*userAgent = c.Request.UserAgent()
	}
}
