package leavebalance

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
	"github.com/frahmantamala/leave-management/internal/core/leave"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetUserLeaveBalances(ctx context.Context, userID string, year int) ([]*LeaveBalance, error)
	GetLeaveBalanceByType(ctx context.Context, userID string, leaveType leave.Type, year int) (*LeaveBalance, error)
	CreateOrUpdateLeaveBalance(ctx context.Context, userID string, leaveType leave.Type, totalDays, year int) (*LeaveBalance, error)
	InitializeDefaultLeaveBalances(ctx context.Context, userID string, year int) ([]*LeaveBalance, error)
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

func parseYear(r *http.Request) (int, *internal.AppError) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 9999 {
		return 0, internal.NewValidationFieldError("year", "year must be a four digit number", internal.ErrCodeInvalidYear)
	}
	return year, nil
}

// GetMyBalances handles GET /leave-balance
func (h *Handler) GetMyBalances(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	year, appErr := parseYear(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	balances, err := h.Service.GetUserLeaveBalances(r.Context(), principal.ID, year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, balances)
}

// GetMyBalanceByType handles GET /leave-balance/{leaveType}
func (h *Handler) GetMyBalanceByType(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	leaveType, err := leave.ParseType(chi.URLParam(r, "leaveType"))
	if err != nil {
		h.WriteAppError(w, internal.NewValidationFieldError("leaveType", err.Error(), internal.ErrCodeInvalidLeaveType))
		return
	}

	year, appErr := parseYear(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	balance, err := h.Service.GetLeaveBalanceByType(r.Context(), principal.ID, leaveType, year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, balance)
}

func targetUserID(r *http.Request) (string, *internal.AppError) {
	userID := chi.URLParam(r, "userId")
	if !validation.IsUUID(userID) {
		return "", internal.NewValidationFieldError("userId", "Invalid UUID format for user ID", internal.ErrCodeInvalidID)
	}
	return userID, nil
}

// GetUserBalances handles GET /leave-balance/users/{userId}
func (h *Handler) GetUserBalances(w http.ResponseWriter, r *http.Request) {
	userID, appErr := targetUserID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	year, appErr := parseYear(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	balances, err := h.Service.GetUserLeaveBalances(r.Context(), userID, year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, balances)
}

// SetUserBalance handles PUT /leave-balance/users/{userId}
func (h *Handler) SetUserBalance(w http.ResponseWriter, r *http.Request) {
	userID, appErr := targetUserID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto SetBalanceDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	balance, err := h.Service.CreateOrUpdateLeaveBalance(r.Context(), userID, leave.Type(dto.LeaveType), *dto.TotalDays, dto.Year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, balance)
}

// InitializeUserBalances handles POST /leave-balance/users/{userId}/initialize
func (h *Handler) InitializeUserBalances(w http.ResponseWriter, r *http.Request) {
	userID, appErr := targetUserID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto InitializeBalancesDTO
	if r.ContentLength > 0 {
		if appErr := h.DecodeJSON(r, &dto); appErr != nil {
			h.WriteAppError(w, appErr)
			return
		}
	}

	balances, err := h.Service.InitializeDefaultLeaveBalances(r.Context(), userID, dto.Year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, balances)
}
