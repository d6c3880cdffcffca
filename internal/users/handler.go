package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/platform/httpx"
	"github.com/aegis-erp/aegis-erp/internal/settings"
	"github.com/aegis-erp/aegis-erp/internal/shared"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermUsersRead))
		r.Get("/", h.list)
		r.Get("/{userID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermUsersWrite))
		r.Post("/", h.create)
		r.Post("/{userID}/activate", h.setActive(true))
		r.Post("/{userID}/deactivate", h.setActive(false))
		r.Put("/{userID}/role", h.setRole)
		r.Post("/{userID}/overrides", h.grantOverride)
		r.Delete("/{userID}/overrides", h.revokeOverride)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	users, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type createRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required"`
	Role      string `json:"role" validate:"required"`
	CompanyID int64  `json:"company_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.Create(r.Context(), actor, CreateInput{
		Email:     req.Email,
		Name:      req.Name,
		Role:      req.Role,
		CompanyID: req.CompanyID,
		Password:  req.Password,
	})
	if err != nil {
		h.respondServiceError(w, "create user", err)
		return
	}
	h.recordAudit(r, actor, shared.AuditActionUserCreated, user.ID, map[string]any{"role": user.Role, "company_id": user.CompanyID})
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := authz.PrincipalFromContext(r.Context())
		id, ok := h.userID(w, r)
		if !ok {
			return
		}
		if err := h.service.SetActive(r.Context(), actor, id, active); err != nil {
			h.respondServiceError(w, "set user active", err)
			return
		}
		h.recordAudit(r, actor, shared.AuditActionUserUpdated, id, map[string]any{"is_active": active})
		httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
	}
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetRole(r.Context(), actor, id, req.Role); err != nil {
		h.respondServiceError(w, "set user role", err)
		return
	}
	h.recordAudit(r, actor, shared.AuditActionUserUpdated, id, map[string]any{"role": req.Role})
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "role": req.Role})
}

type overrideRequest struct {
	Permission string `json:"permission" validate:"required"`
}

func (h *Handler) grantOverride(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req overrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.GrantOverride(r.Context(), actor, id, req.Permission); err != nil {
		h.respondServiceError(w, "grant override", err)
		return
	}
	h.recordAudit(r, actor, shared.AuditActionOverrideGranted, id, map[string]any{"permission": req.Permission})
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "permission": req.Permission})
}

func (h *Handler) revokeOverride(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	perm := r.URL.Query().Get("permission")
	if perm == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission query parameter required")
		return
	}
	if err := h.service.RevokeOverride(r.Context(), actor, id, perm); err != nil {
		h.respondServiceError(w, "revoke override", err)
		return
	}
	h.recordAudit(r, actor, shared.AuditActionOverrideRevoked, id, map[string]any{"permission": perm})
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "permission": perm})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, authz.ErrUnknownRole),
		errors.Is(err, authz.ErrMalformedPermission),
		errors.Is(err, settings.ErrPasswordTooShort),
		errors.Is(err, settings.ErrPasswordNeedsNum),
		errors.Is(err, settings.ErrPasswordNeedsSpec):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Warn(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) recordAudit(r *http.Request, actor authz.Principal, action string, entityID int64, meta map[string]any) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
