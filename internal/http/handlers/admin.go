package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pgpay/pgpay-backend/internal/http/respond"
	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/models/dto"
	"github.com/pgpay/pgpay-backend/internal/notify"
	"github.com/pgpay/pgpay-backend/internal/proofstore"
	"github.com/pgpay/pgpay-backend/internal/storage"
	"github.com/pgpay/pgpay-backend/internal/sweep"
)

// AdminHandler owns the permission-gated console surface: ticket
// processing, user and admin management, settings, audit, and cleanup.
type AdminHandler struct {
	tickets  storage.TicketStore
	profiles storage.ProfileStore
	settings storage.SettingsStore
	audit    storage.AuditStore
	perms    storage.PermissionStore
	proofs   proofstore.Store
	hub      *notify.Hub
	log      *zap.Logger

	retention time.Duration
	signedTTL time.Duration
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(tickets storage.TicketStore, profiles storage.ProfileStore, settings storage.SettingsStore,
	audit storage.AuditStore, perms storage.PermissionStore, proofs proofstore.Store, hub *notify.Hub,
	log *zap.Logger, retention, signedTTL time.Duration) *AdminHandler {
	return &AdminHandler{
		tickets:  tickets,
		profiles: profiles,
		settings: settings,
		audit:    audit,
		perms:    perms,
		proofs:   proofs,
		hub:      hub,
		log:      log,

		retention: retention,
		signedTTL: signedTTL,
	}
}

// Register attaches admin routes to the mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/tickets", h.handleListTickets)
	mux.HandleFunc("GET /admin/tickets/{id}", h.handleGetTicket)
	mux.HandleFunc("POST /admin/tickets/{id}/status", h.handleTransition)
	mux.HandleFunc("GET /admin/users", h.handleListUsers)
	mux.HandleFunc("GET /admin/settings", h.handleListSettings)
	mux.HandleFunc("PUT /admin/settings/{key}", h.handleUpdateSetting)
	mux.HandleFunc("GET /admin/admins", h.handleListAdmins)
	mux.HandleFunc("POST /admin/admins/{user_id}/permissions", h.handleGrant)
	mux.HandleFunc("DELETE /admin/admins/{user_id}/permissions/{permission}", h.handleRevoke)
	mux.HandleFunc("GET /admin/audit", h.handleListAudit)
	mux.HandleFunc("POST /admin/cleanup", h.handleCleanup)
}

// requirePermission resolves the caller's access and gates on perm.
// Unauthenticated callers get 401, insufficient grants 403.
func (h *AdminHandler) requirePermission(w http.ResponseWriter, r *http.Request, perm models.Permission) (models.User, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return models.User{}, false
	}
	access, err := h.perms.ResolveAccess(r.Context(), user.ID)
	if err != nil {
		h.log.Error("resolve access", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to resolve permissions")
		return models.User{}, false
	}
	if !access.Has(perm) {
		respond.Error(w, http.StatusForbidden, "insufficient permission")
		return models.User{}, false
	}
	return user, true
}

func (h *AdminHandler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, models.PermManageTickets); !ok {
		return
	}
	var filter *models.TicketStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := models.TicketStatus(raw)
		if !status.Valid() {
			respond.Error(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		filter = &status
	}
	tickets, err := h.tickets.ListTickets(r.Context(), filter)
	if err != nil {
		h.log.Error("list tickets", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	respond.JSON(w, http.StatusOK, "tickets", tickets)
}

func (h *AdminHandler) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, models.PermManageTickets); !ok {
		return
	}
	ticket, err := h.tickets.TicketByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.StoreError(w, err, "failed to load ticket")
		return
	}
	resp := dto.TicketResponse{Ticket: ticket}
	if ticket.ProofURL != nil {
		url, err := h.proofs.SignedURL(r.Context(), *ticket.ProofURL, h.signedTTL)
		if err != nil {
			// Proof may have been swept; the client shows a placeholder.
			h.log.Warn("sign proof url", zap.String("path", *ticket.ProofURL), zap.Error(err))
		} else {
			resp.SignedProofURL = url
		}
	}
	respond.JSON(w, http.StatusOK, "ticket", resp)
}

func (h *AdminHandler) handleTransition(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePermission(w, r, models.PermManageTickets)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if !req.Status.Valid() {
		respond.Error(w, http.StatusBadRequest, "unknown target status")
		return
	}
	if req.Note != nil {
		if err := validateNotes(*req.Note); err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	id := r.PathValue("id")
	ticket, prev, err := h.tickets.TransitionTicket(r.Context(), id, req.Status, actor.ID, req.Note)
	if err != nil {
		respond.StoreError(w, err, "failed to update ticket")
		return
	}

	// Audit is best-effort: the status change is committed, a failed
	// append is reported but never rolls it back.
	auditLogged := true
	details := map[string]any{
		"previous_status": string(prev),
		"new_status":      string(req.Status),
		"admin_notes":     req.Note,
	}
	entry := models.AuditLogEntry{
		ID:         uuid.NewString(),
		AdminID:    &actor.ID,
		Action:     models.TicketAuditAction(req.Status),
		TargetType: "payment_ticket",
		TargetID:   &id,
		Details:    details,
	}
	if err := h.audit.AppendAudit(r.Context(), entry); err != nil {
		h.log.Error("append audit", zap.String("ticket_id", id), zap.Error(err))
		auditLogged = false
	}

	h.hub.Publish(ticket)
	respond.JSON(w, http.StatusOK, "ticket updated", dto.TransitionResponse{Ticket: ticket, AuditLogged: auditLogged})
}

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, models.PermManageUsers); !ok {
		return
	}
	users, err := h.profiles.ListUsers(r.Context())
	if err != nil {
		h.log.Error("list users", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respond.JSON(w, http.StatusOK, "users", users)
}

func (h *AdminHandler) handleListSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, models.PermManageSettings); !ok {
		return
	}
	settings, err := h.settings.AllSettings(r.Context())
	if err != nil {
		h.log.Error("list settings", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to list settings")
		return
	}
	respond.JSON(w, http.StatusOK, "settings", settings)
}

func (h *AdminHandler) handleUpdateSetting(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePermission(w, r, models.PermManageSettings)
	if !ok {
		return
	}
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		respond.Error(w, http.StatusBadRequest, "setting key is required")
		return
	}
	var req dto.SettingUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	setting, err := h.settings.UpsertSetting(r.Context(), key, req.Value, actor.ID)
	if err != nil {
		h.log.Error("upsert setting", zap.String("key", key), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to update setting")
		return
	}

	h.appendAudit(r, models.AuditLogEntry{
		ID:         uuid.NewString(),
		AdminID:    &actor.ID,
		Action:     models.AuditSettingUpdated,
		TargetType: "app_setting",
		TargetID:   &key,
		Details:    map[string]any{"value": req.Value},
	})
	respond.JSON(w, http.StatusOK, "setting updated", setting)
}

func (h *AdminHandler) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, models.PermManageAdmins); !ok {
		return
	}
	admins, err := h.perms.ListAdmins(r.Context())
	if err != nil {
		h.log.Error("list admins", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to list admins")
		return
	}
	respond.JSON(w, http.StatusOK, "admins", admins)
}

func (h *AdminHandler) handleGrant(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePermission(w, r, models.PermManageAdmins)
	if !ok {
		return
	}
	var req dto.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if !req.Permission.Valid() {
		respond.Error(w, http.StatusBadRequest, "unknown permission")
		return
	}
	targetID := r.PathValue("user_id")

	if err := h.perms.Grant(r.Context(), targetID, req.Permission, actor.ID); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, "permission already granted")
			return
		}
		h.log.Error("grant permission", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to grant permission")
		return
	}

	h.appendAudit(r, models.AuditLogEntry{
		ID:         uuid.NewString(),
		AdminID:    &actor.ID,
		Action:     models.AuditPermissionGranted,
		TargetType: "admin_permission",
		TargetID:   &targetID,
		Details:    map[string]any{"permission": string(req.Permission)},
	})
	respond.JSON(w, http.StatusCreated, "permission granted", nil)
}

func (h *AdminHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePermission(w, r, models.PermManageAdmins)
	if !ok {
		return
	}
	perm := models.Permission(r.PathValue("permission"))
	if !perm.Valid() {
		respond.Error(w, http.StatusBadRequest, "unknown permission")
		return
	}
	targetID := r.PathValue("user_id")

	if err := h.perms.Revoke(r.Context(), targetID, perm); err != nil {
		respond.StoreError(w, err, "failed to revoke permission")
		return
	}

	h.appendAudit(r, models.AuditLogEntry{
		ID:         uuid.NewString(),
		AdminID:    &actor.ID,
		Action:     models.AuditPermissionRevoked,
		TargetType: "admin_permission",
		TargetID:   &targetID,
		Details:    map[string]any{"permission": string(perm)},
	})
	respond.JSON(w, http.StatusOK, "permission revoked", nil)
}

func (h *AdminHandler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, models.PermManageAdmins); !ok {
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	entries, err := h.audit.ListAudit(r.Context(), limit)
	if err != nil {
		h.log.Error("list audit", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	respond.JSON(w, http.StatusOK, "audit log", entries)
}

func (h *AdminHandler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, models.PermManageSettings); !ok {
		return
	}
	report, err := sweep.Run(r.Context(), h.log, h.proofs, h.tickets, h.retention)
	if err != nil {
		h.log.Error("cleanup sweep", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to run cleanup")
		return
	}
	respond.JSON(w, http.StatusOK, "cleanup completed", report)
}

func (h *AdminHandler) appendAudit(r *http.Request, entry models.AuditLogEntry) {
	if err := h.audit.AppendAudit(r.Context(), entry); err != nil {
		h.log.Error("append audit", zap.String("action", entry.Action), zap.Error(err))
	}
}
