package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/platform/httpx"
	"github.com/aegis-erp/aegis-erp/internal/shared"
)

// Handler exposes security settings endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		audit:     audit,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermSettingsRead))
		r.Get("/security", h.getSecurity)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermSettingsWrite))
		r.Put("/security", h.updateSecurity)
	})
}

func (h *Handler) getSecurity(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.Current(r.Context())
	if err != nil {
		h.logger.Error("load security settings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, current)
}

func (h *Handler) updateSecurity(w http.ResponseWriter, r *http.Request) {
	var payload SecuritySettings
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Update(r.Context(), payload); err != nil {
		h.logger.Error("update security settings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if principal, ok := authz.PrincipalFromContext(r.Context()); ok && h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  principal.UserID,
			Action:   shared.AuditActionSettingsUpdated,
			Entity:   "security_settings",
			EntityID: "1",
			Meta: map[string]any{
				"threshold":                payload.Threshold,
				"lockout_duration_minutes": payload.LockoutDurationMinutes,
			},
		}); err != nil {
			h.logger.Warn("audit settings update", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, payload)
}
