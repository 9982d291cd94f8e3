// Package handler exposes the compliance engine over HTTP.
package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"tickex/internal/compliance"
	"tickex/internal/domain"
	"tickex/internal/middleware"
	"tickex/internal/monitor"
	"tickex/pkg/errors"
	"tickex/pkg/logger"
	"tickex/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

// ComplianceHandler handles compliance session and reporting endpoints.
type ComplianceHandler struct {
	service   *compliance.Service
	monitor   *monitor.Service
	validator *validator.Validator
	logger    logger.Logger
}

// NewComplianceHandler creates a ComplianceHandler with required dependencies.
func NewComplianceHandler(svc *compliance.Service, mon *monitor.Service, val *validator.Validator, log logger.Logger) *ComplianceHandler {
	return &ComplianceHandler{
		service:   svc,
		monitor:   mon,
		validator: val,
		logger:    log,
	}
}

// --- Request payloads ---

type evaluateRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"required,amount"`
	Currency string          `json:"currency" validate:"omitempty,currency3"`
}

type verifyRequest struct {
	FullName       string `json:"full_name" validate:"required,min=2,max=200"`
	DateOfBirth    string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Country        string `json:"country" validate:"omitempty,country2"`
	DocumentType   string `json:"document_type" validate:"omitempty,max=40"`
	DocumentNumber string `json:"document_number" validate:"required,min=1,max=64"`
	Email          string `json:"email" validate:"omitempty,email"`
}

type discloseRequest struct {
	Price     decimal.Decimal `json:"price" validate:"required,amount"`
	RoyaltyBp *int64          `json:"royalty_bp" validate:"omitempty,min=0"`
}

type acceptRequest struct {
	Accepted bool `json:"accepted"`
}

type settleRequest struct {
	ReferenceID string          `json:"reference_id" validate:"required,min=1,max=128"`
	Amount      decimal.Decimal `json:"amount" validate:"required,amount"`
	Currency    string          `json:"currency" validate:"omitempty,currency3"`
	EventRef    string          `json:"event_ref" validate:"omitempty,max=128"`
	UnitCount   int             `json:"unit_count" validate:"omitempty,min=1"`
}

type reportsFilter struct {
	Tier string `json:"tier" validate:"omitempty,tier"`
}

// --- Session endpoints ---

// Evaluate assesses the verification tier required for an intended purchase.
func (h *ComplianceHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectFromContext(w, r)
	if !ok {
		return
	}

	var req evaluateRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	snap, err := h.service.Evaluate(r.Context(), subjectID, req.Amount)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

// Verify runs the identity document through the provider gateway.
func (h *ComplianceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectFromContext(w, r)
	if !ok {
		return
	}

	var req verifyRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	snap, err := h.service.Verify(r.Context(), subjectID, domain.IdentityRecord{
		FullName:       req.FullName,
		DateOfBirth:    req.DateOfBirth,
		Country:        req.Country,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		Email:          req.Email,
	})
	if err != nil {
		if errors.Is(err, errors.ErrVerificationExhausted) {
			h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":   err.Error(),
				"session": snap,
			})
			return
		}
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

// Disclose computes, reviews, and discloses the fee structure for a price.
func (h *ComplianceHandler) Disclose(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectFromContext(w, r)
	if !ok {
		return
	}

	var req discloseRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	snap, err := h.service.Disclose(r.Context(), subjectID, req.Price, req.RoyaltyBp)
	if err != nil {
		var violation *errors.ComplianceViolationError
		if errors.As(err, &violation) {
			h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":    errors.ErrComplianceViolation.Error(),
				"warnings": violation.Warnings,
				"session":  snap,
			})
			return
		}
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

// Accept records the buyer's explicit decision on the disclosed fees.
func (h *ComplianceHandler) Accept(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectFromContext(w, r)
	if !ok {
		return
	}

	var req acceptRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	snap, err := h.service.AcceptDisclosure(r.Context(), subjectID, req.Accepted)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

// Settle records one settled purchase against the ready session.
func (h *ComplianceHandler) Settle(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectFromContext(w, r)
	if !ok {
		return
	}

	var req settleRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	report, err := h.service.Settle(r.Context(), subjectID, domain.SettledTransaction{
		ReferenceID: req.ReferenceID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		EventRef:    req.EventRef,
		UnitCount:   req.UnitCount,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, report)
}

// Reset clears the session back to unverified.
func (h *ComplianceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectFromContext(w, r)
	if !ok {
		return
	}

	snap, err := h.service.Reset(r.Context(), subjectID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

// Session returns the current session snapshot.
func (h *ComplianceHandler) Session(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectFromContext(w, r)
	if !ok {
		return
	}

	snap, err := h.service.Snapshot(subjectID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

// Watch streams session snapshots over a websocket until the client
// disconnects.
func (h *ComplianceHandler) Watch(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectFromContext(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	snapshots, cancel := h.service.Watch(subjectID)
	defer cancel()

	// Reader goroutine detects client-side close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, open := <-snapshots:
			if !open {
				return
			}
			if err := conn.WriteJSON(map[string]interface{}{
				"type":      "session_update",
				"timestamp": time.Now().UTC(),
				"session":   snap,
			}); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// --- Reporting endpoints ---

// Dashboard returns aggregate statistics recomputed from the full
// retained record set.
func (h *ComplianceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.monitor.Dashboard(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

// Reports returns transaction reports within an inclusive date range.
// Query parameters from and to are RFC 3339 dates.
func (h *ComplianceHandler) Reports(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid to date")
		return
	}

	filter := reportsFilter{Tier: r.URL.Query().Get("tier")}
	if err := h.validator.Validate(filter); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := h.monitor.ReportsBetween(r.Context(), from, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	if filter.Tier != "" {
		tier, err := domain.ParseTier(filter.Tier)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		kept := reports[:0]
		for _, rep := range reports {
			if rep.TierAtTransaction == tier {
				kept = append(kept, rep)
			}
		}
		reports = kept
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":    from,
		"to":      to,
		"count":   len(reports),
		"reports": reports,
	})
}

// Purge removes reports older than the retention window. Admin only.
func (h *ComplianceHandler) Purge(w http.ResponseWriter, r *http.Request) {
	if role, _ := middleware.RoleFromContext(r.Context()); role != "admin" {
		h.respondError(w, http.StatusForbidden, "admin role required")
		return
	}

	removed, err := h.monitor.PurgeExpired(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

// --- Helpers ---

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.ErrInvalidRequest
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *ComplianceHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", map[string]interface{}{
			"error":  err.Error(),
			"status": status,
		})
	}
}

func (h *ComplianceHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP statuses.
func (h *ComplianceHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrSessionNotFound), errors.Is(err, errors.ErrReportNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errors.ErrSessionBlocked):
		h.respondError(w, http.StatusLocked, err.Error())
	case errors.Is(err, errors.ErrInvalidTransition),
		errors.Is(err, errors.ErrVerificationRequired),
		errors.Is(err, errors.ErrDisclosureNotAccepted),
		errors.Is(err, errors.ErrDisclosureMissing),
		errors.Is(err, errors.ErrDuplicateSettlement):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errors.ErrInsufficientTier):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errors.ErrInvalidDateRange), errors.Is(err, errors.ErrInvalidRequest):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Unhandled service error", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *ComplianceHandler) parseAndValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"error":    err.Error(),
			"endpoint": r.URL.Path,
		})
		h.respondError(w, http.StatusBadRequest, "Invalid request body format")
		return false
	}

	if fields := h.validator.ValidateStructured(req); len(fields) > 0 {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": fields,
		})
		return false
	}

	return true
}

func (h *ComplianceHandler) subjectFromContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	subjectID, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		h.logger.Warn("Missing subject ID in context", map[string]interface{}{
			"endpoint": r.URL.Path,
			"ip":       r.RemoteAddr,
		})
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return subjectID, true
}
