package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shaiso/followup/internal/domain"
	"github.com/shaiso/followup/internal/followup"
	"github.com/shaiso/followup/internal/repo"
)

const maxBodyBytes = 1 << 20

// Health возвращает статус сервиса.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

// ListLeads возвращает список leads.
// GET /api/v1/leads?status=active&limit=100&offset=0
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	var filter repo.LeadFilter

	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := domain.ParseLeadStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = &status
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = n
	}

	leads, err := h.leads.List(r.Context(), filter)
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	result := make([]LeadResponse, len(leads))
	for i := range leads {
		result[i] = LeadFromDomain(&leads[i])
	}
	List(w, result, len(result))
}

// ImportLeads импортирует список адресов.
// POST /api/v1/leads/bulk
func (h *Handler) ImportLeads(w http.ResponseWriter, r *http.Request) {
	var req ImportLeadsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if len(req.Leads) == 0 {
		BadRequest(w, "leads is required")
		return
	}

	interval := 0
	if req.EmailInterval != nil {
		if *req.EmailInterval <= 0 {
			BadRequest(w, "email_interval must be a positive number of minutes")
			return
		}
		interval = *req.EmailInterval
	}

	leads, err := h.leads.Import(r.Context(), req.Leads, interval)
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	resp := ImportLeadsResponse{
		Imported: len(leads),
		Leads:    make([]LeadResponse, len(leads)),
	}
	for i, l := range leads {
		resp.Leads[i] = LeadFromDomain(l)
	}
	Created(w, resp)
}

// GetLead возвращает lead по ID.
// GET /api/v1/leads/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	lead, err := h.leads.Get(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "lead not found") {
		return
	}

	Success(w, LeadFromDomain(lead))
}

// SetLeadStatus меняет статус lead'а.
// PUT /api/v1/leads/{id}/status
func (h *Handler) SetLeadStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	var req SetStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, valid := domain.ParseLeadStatus(req.Status)
	if !valid {
		BadRequest(w, "status must be one of: active, paused, completed")
		return
	}

	lead, err := h.leads.SetStatus(r.Context(), id, status)
	if HandleServiceError(w, h.logger, err, "lead not found") {
		return
	}

	Success(w, LeadFromDomain(lead))
}

// DeleteLead удаляет lead.
// DELETE /api/v1/leads/{id}
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	err := h.leads.Delete(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "lead not found") {
		return
	}

	NoContent(w)
}

// DeleteAllLeads удаляет все leads.
// DELETE /api/v1/leads
func (h *Handler) DeleteAllLeads(w http.ResponseWriter, r *http.Request) {
	n, err := h.leads.DeleteAll(r.Context())
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	Success(w, DeleteAllResponse{Deleted: n})
}

// TestLeadEmail создаёт lead с интервалом в минуту и сразу шлёт письмо.
// POST /api/v1/test-lead-email
//
// Если lead создан, но письмо не доставлено, отвечает 200 с email_sent=false.
func (h *Handler) TestLeadEmail(w http.ResponseWriter, r *http.Request) {
	var req TestLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		BadRequest(w, "email is required")
		return
	}

	res, err := h.leads.TestLead(r.Context(), req.Email)
	if err != nil && errors.Is(err, followup.ErrDeliveryFailed) && res.Lead != nil {
		Success(w, TestLeadResponse{
			Lead:      LeadFromDomain(res.Lead),
			EmailSent: false,
			Error:     "email delivery failed",
		})
		return
	}
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	Created(w, TestLeadResponse{Lead: LeadFromDomain(res.Lead), EmailSent: res.Sent})
}

func leadID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		BadRequest(w, "invalid lead id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}
	return true
}
