package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicportal/lifecycle-engine/internal/application/service"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
	"github.com/civicportal/lifecycle-engine/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WaitlistExporter renders a program ranking as a workbook
type WaitlistExporter interface {
	Write(w io.Writer, programID string, entries []entity.RankedEntry) error
}

// NotificationFeed exposes recorded notification triggers to the delivery service
type NotificationFeed interface {
	Pending(ctx context.Context, limit int) ([]*entity.NotificationTrigger, error)
}

const (
	defaultPendingLimit = 50
	maxPendingLimit     = 500
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	lifecycle     service.LifecycleService
	documents     service.DocumentService
	exporter      WaitlistExporter
	notifications NotificationFeed
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	lifecycle service.LifecycleService,
	documents service.DocumentService,
	exporter WaitlistExporter,
	notifications NotificationFeed,
	logger Logger,
) *Handlers {
	return &Handlers{
		lifecycle:     lifecycle,
		documents:     documents,
		exporter:      exporter,
		notifications: notifications,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitApplicationRequest is the body of a new application
type SubmitApplicationRequest struct {
	Domain      string              `json:"domain" binding:"required"`
	ReferenceNo string              `json:"reference_no" binding:"required"`
	ApplicantID int64               `json:"applicant_id"`
	ProgramID   string              `json:"program_id"`
	Attributes  map[string]string   `json:"attributes"`
	Beneficiary *BeneficiaryProfile `json:"beneficiary"`
	ActorID     string              `json:"actor_id" binding:"required"`
}

// BeneficiaryProfile describes a first-time housing applicant
type BeneficiaryProfile struct {
	FullName        string     `json:"full_name"`
	BirthDate       *time.Time `json:"birth_date"`
	Address         string     `json:"address"`
	HouseholdSize   int        `json:"household_size"`
	HouseholdIncome float64    `json:"household_income"`
	ResidencyYears  float64    `json:"residency_years"`
	OwnsProperty    bool       `json:"owns_property"`
	SectorTags      []string   `json:"sector_tags"`
}

func (p *BeneficiaryProfile) toEntity() *entity.Beneficiary {
	if p == nil {
		return nil
	}
	tags := make([]entity.SectorTag, 0, len(p.SectorTags))
	for _, tag := range p.SectorTags {
		tags = append(tags, entity.SectorTag(tag))
	}
	return &entity.Beneficiary{
		FullName:        utils.SanitizeString(p.FullName),
		BirthDate:       p.BirthDate,
		Address:         utils.SanitizeString(p.Address),
		HouseholdSize:   p.HouseholdSize,
		HouseholdIncome: p.HouseholdIncome,
		ResidencyYears:  p.ResidencyYears,
		OwnsProperty:    p.OwnsProperty,
		SectorTags:      tags,
	}
}

// TransitionRequest is the body of a transition check
type TransitionRequest struct {
	Domain string `json:"domain" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// DecisionRequest is the body of a staff decision
type DecisionRequest struct {
	Domain  string `json:"domain" binding:"required"`
	Status  string `json:"status" binding:"required"`
	Remarks string `json:"remarks"`
	ActorID string `json:"actor_id" binding:"required"`
}

// EligibilityRequest is the body of an eligibility check
type EligibilityRequest struct {
	AutoApply bool   `json:"auto_apply"`
	ActorID   string `json:"actor_id"`
}

// SubmitDocumentRequest is the body of a document upload record
type SubmitDocumentRequest struct {
	DocType  string `json:"doc_type" binding:"required"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
	ActorID  string `json:"actor_id" binding:"required"`
}

// VerifyDocumentRequest is the body of a verification outcome
type VerifyDocumentRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Remarks  string `json:"remarks"`
	ActorID  string `json:"actor_id" binding:"required"`
}

// TransitionErrorData is returned with a rejected transition
type TransitionErrorData struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	AllowedStatuses []string `json:"allowed_statuses"`
	Terminal        bool     `json:"terminal"`
}

// RankingResponse wraps a recomputed program ranking
type RankingResponse struct {
	ProgramID string               `json:"program_id"`
	Entries   []entity.RankedEntry `json:"entries"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitApplication handles POST /api/applications
func (h *Handlers) SubmitApplication(c *gin.Context) {
	var req SubmitApplicationRequest
	if !h.bind(c, &req) || !h.checkDomain(c, req.Domain) {
		return
	}
	if err := utils.ValidateActorID(req.ActorID); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	if req.ProgramID != "" {
		if err := utils.ValidateProgramID(req.ProgramID); err != nil {
			h.badRequest(c, err.Error())
			return
		}
	}

	attrs := make(entity.Attributes, len(req.Attributes))
	for k, v := range req.Attributes {
		attrs[k] = utils.SanitizeString(v)
	}

	app, err := h.lifecycle.Submit(c.Request.Context(), service.SubmitRequest{
		Domain:      workflow.Domain(req.Domain),
		ReferenceNo: utils.SanitizeString(req.ReferenceNo),
		ApplicantID: req.ApplicantID,
		ProgramID:   req.ProgramID,
		Attributes:  attrs,
		Beneficiary: req.Beneficiary.toEntity(),
		ActorID:     req.ActorID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("Application submitted", "application_id", app.ID, "domain", app.Domain, "actor_id", req.ActorID)

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    app,
	})
}

// ValidateTransition handles POST /api/applications/:id/transitions/validate
func (h *Handlers) ValidateTransition(c *gin.Context) {
	id, ok := h.parseID(c, "application")
	if !ok {
		return
	}

	var req TransitionRequest
	if !h.bind(c, &req) || !h.checkDomain(c, req.Domain) {
		return
	}

	if err := h.lifecycle.ValidateTransition(c.Request.Context(), workflow.Domain(req.Domain), id, req.Status); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"valid": true},
	})
}

// RecordDecision handles POST /api/applications/:id/decisions
func (h *Handlers) RecordDecision(c *gin.Context) {
	id, ok := h.parseID(c, "application")
	if !ok {
		return
	}

	var req DecisionRequest
	if !h.bind(c, &req) || !h.checkDomain(c, req.Domain) {
		return
	}
	if err := utils.ValidateActorID(req.ActorID); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	app, err := h.lifecycle.RecordDecision(c.Request.Context(), service.DecisionRequest{
		Domain:          workflow.Domain(req.Domain),
		ApplicationID:   id,
		RequestedStatus: req.Status,
		Remarks:         utils.SanitizeString(req.Remarks),
		ActorID:         req.ActorID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("Decision recorded", "application_id", id, "status", app.Status, "actor_id", req.ActorID)

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    app,
	})
}

// CheckEligibility handles POST /api/applications/:id/eligibility
func (h *Handlers) CheckEligibility(c *gin.Context) {
	id, ok := h.parseID(c, "application")
	if !ok {
		return
	}

	var req EligibilityRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	if req.AutoApply {
		if err := utils.ValidateActorID(req.ActorID); err != nil {
			h.badRequest(c, err.Error())
			return
		}
	}

	result, err := h.lifecycle.CheckEligibility(c.Request.Context(), id, req.AutoApply, req.ActorID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// ValidateApplication handles GET /api/applications/:id/validation
func (h *Handlers) ValidateApplication(c *gin.Context) {
	id, ok := h.parseID(c, "application")
	if !ok {
		return
	}

	result, err := h.lifecycle.ValidateApplication(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// Timeline handles GET /api/applications/:id/timeline
func (h *Handlers) Timeline(c *gin.Context) {
	id, ok := h.parseID(c, "application")
	if !ok {
		return
	}

	timeline, err := h.lifecycle.Timeline(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    timeline,
	})
}

// SubmitDocument handles POST /api/applications/:id/documents
func (h *Handlers) SubmitDocument(c *gin.Context) {
	id, ok := h.parseID(c, "application")
	if !ok {
		return
	}

	var req SubmitDocumentRequest
	if !h.bind(c, &req) {
		return
	}
	if err := utils.ValidateIdentifier("doc_type", req.DocType); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	doc, err := h.documents.Submit(c.Request.Context(), id, req.DocType, entity.FileMeta{
		FileName: req.FileName,
		FileSize: req.FileSize,
		MimeType: req.MimeType,
	}, req.ActorID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    doc,
	})
}

// VerifyDocument handles POST /api/documents/:id/verification
func (h *Handlers) VerifyDocument(c *gin.Context) {
	id, ok := h.parseID(c, "document")
	if !ok {
		return
	}

	var req VerifyDocumentRequest
	if !h.bind(c, &req) {
		return
	}

	doc, err := h.documents.Verify(c.Request.Context(), id, *req.Approved, utils.SanitizeString(req.Remarks), req.ActorID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    doc,
	})
}

// RecomputeRanking handles POST /api/programs/:id/ranking
func (h *Handlers) RecomputeRanking(c *gin.Context) {
	programID := c.Param("id")
	if err := utils.ValidateProgramID(programID); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	entries, err := h.lifecycle.RecomputeRanking(c.Request.Context(), programID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    RankingResponse{ProgramID: programID, Entries: entries},
	})
}

// ExportWaitlist handles GET /api/programs/:id/waitlist/export
func (h *Handlers) ExportWaitlist(c *gin.Context) {
	programID := c.Param("id")
	if err := utils.ValidateProgramID(programID); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	entries, err := h.lifecycle.Ranking(c.Request.Context(), programID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Render fully before writing so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, programID, entries); err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("waitlist-%s-%s.xlsx", programID, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListPendingNotifications handles GET /api/notifications/pending
func (h *Handlers) ListPendingNotifications(c *gin.Context) {
	limit := defaultPendingLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPendingLimit {
			h.badRequest(c, fmt.Sprintf("limit must be between 1 and %d", maxPendingLimit))
			return
		}
		limit = n
	}

	triggers, err := h.notifications.Pending(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if triggers == nil {
		triggers = []*entity.NotificationTrigger{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    triggers,
	})
}

// writeError maps service and domain errors to status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	var (
		transitionErr  *workflow.InvalidTransitionError
		notReadyErr    *service.NotReadyError
		notEligibleErr *service.NotEligibleError
	)

	switch {
	case errors.As(err, &transitionErr):
		allowed := transitionErr.Allowed
		if allowed == nil {
			allowed = []string{}
		}
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   err.Error(),
			Data: TransitionErrorData{
				From:            transitionErr.From,
				To:              transitionErr.To,
				AllowedStatuses: allowed,
				Terminal:        transitionErr.Terminal,
			},
		})
	case errors.As(err, &notReadyErr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   err.Error(),
			Data:    notReadyErr.Result,
		})
	case errors.As(err, &notEligibleErr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   err.Error(),
			Data:    notEligibleErr.Result,
		})
	case errors.Is(err, service.ErrDuplicateApplication), errors.Is(err, service.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrDomainMismatch), errors.Is(err, service.ErrInvalidSubmission):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, workflow.ErrConfiguration):
		h.logger.Error("Configuration error", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

func (h *Handlers) parseID(c *gin.Context, kind string) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid ID", "kind", kind, "id", idStr)
		h.badRequest(c, "invalid "+kind+" ID")
		return 0, false
	}
	return id, true
}

func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handlers) checkDomain(c *gin.Context, domain string) bool {
	if !workflow.Domain(domain).IsApplicationDomain() {
		h.badRequest(c, fmt.Sprintf("unknown domain %q", domain))
		return false
	}
	return true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}
