package auth

import (
	"net/http"

	"github.com/frahmantamala/leave-management/internal"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/frahmantamala/leave-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	resp, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.Logger.Info("login failed", "email", dto.Email, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// Logout revokes the token that authenticated the request.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, err := h.Service.ValidateAccessToken(r.Context(), h.ExtractTokenFromHeader(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.Logout(r.Context(), claims)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("Authorization token required", internal.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(r.Context(), token)
		if err != nil {
			h.Logger.Debug("token validation failed", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		principal := &internal.Principal{
			ID:      claims.UserID(),
			Email:   claims.Email,
			Role:    claims.Role,
			TokenID: claims.ID,
		}
		if claims.ExpiresAt != nil {
			principal.Expiry = claims.ExpiresAt.Time
		}

		ctx := internal.ContextWithPrincipal(r.Context(), principal)
		ctx = logger.With(ctx, "user_id", principal.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets the request through only for the listed roles.
func (h *Handler) RequireRole(roles ...coreUser.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := internal.PrincipalFromContext(r.Context())
			if !ok {
				h.WriteAppError(w, internal.NewUnauthorizedError("Authorization token required", internal.ErrCodeInvalidToken))
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			h.Logger.Info("role check failed", "user_id", principal.ID, "role", principal.Role, "path", r.URL.Path)
			h.WriteAppError(w, internal.NewForbiddenError("Insufficient permissions", internal.ErrCodeManagerRequired))
		})
	}
}
