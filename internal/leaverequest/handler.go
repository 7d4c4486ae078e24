package leaverequest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
	"github.com/frahmantamala/leave-management/internal/core/leave"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateLeaveRequest(ctx context.Context, userID string, dto CreateLeaveRequestDTO) (*LeaveRequest, error)
	GetMyLeaveRequests(ctx context.Context, userID string) ([]*LeaveRequest, error)
	GetAllLeaveRequests(ctx context.Context, managerID string, filter ListFilter) ([]*LeaveRequest, error)
	GetLeaveRequestByID(ctx context.Context, requestID, callerID string) (*LeaveRequest, error)
	UpdateLeaveRequestStatus(ctx context.Context, requestID, managerID string, dto UpdateLeaveRequestStatusDTO) (*LeaveRequest, error)
	DeleteLeaveRequest(ctx context.Context, callerID, requestID string) (*MessageResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	if baseHandler == nil {
		baseHandler = transport.NewBaseHandler(slog.Default())
	}
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// requestID reads {id} and rejects malformed UUIDs before any store access.
func requestID(r *http.Request) (string, *internal.AppError) {
	id := chi.URLParam(r, "id")
	if !validation.IsUUID(id) {
		return "", internal.ErrInvalidRequestID
	}
	return id, nil
}

// CreateLeaveRequest handles POST /leave-request
func (h *Handler) CreateLeaveRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	var dto CreateLeaveRequestDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	req, err := h.Service.CreateLeaveRequest(r.Context(), principal.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, req)
}

// GetMyLeaveRequests handles GET /leave-request
func (h *Handler) GetMyLeaveRequests(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	requests, err := h.Service.GetMyLeaveRequests(r.Context(), principal.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, requests)
}

// GetAllLeaveRequests handles GET /leave-request/all?status=
func (h *Handler) GetAllLeaveRequests(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	var filter ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := leave.Status(raw)
		if !status.Valid() {
			h.WriteAppError(w, internal.NewValidationFieldError("status", "status must be one of: pending, approved, rejected", internal.ErrCodeInvalidStatus))
			return
		}
		filter.Status = status
	}

	requests, err := h.Service.GetAllLeaveRequests(r.Context(), principal.ID, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, requests)
}

// GetLeaveRequest handles GET /leave-request/{id}
func (h *Handler) GetLeaveRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	id, appErr := requestID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	req, err := h.Service.GetLeaveRequestByID(r.Context(), id, principal.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

// UpdateLeaveRequestStatus handles PATCH /leave-request/{id}
func (h *Handler) UpdateLeaveRequestStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	id, appErr := requestID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto UpdateLeaveRequestStatusDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	req, err := h.Service.UpdateLeaveRequestStatus(r.Context(), id, principal.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("leave request status updated", "request_id", id, "status", req.Status, "manager_id", principal.ID)
	h.WriteJSON(w, http.StatusOK, req)
}

// DeleteLeaveRequest handles DELETE /leave-request/{id}
func (h *Handler) DeleteLeaveRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	id, appErr := requestID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	resp, err := h.Service.DeleteLeaveRequest(r.Context(), principal.ID, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
