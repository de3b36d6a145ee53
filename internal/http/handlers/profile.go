package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pgpay/pgpay-backend/internal/http/respond"
	"github.com/pgpay/pgpay-backend/internal/middleware"
	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/models/dto"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

// ProfileHandler serves the caller's contact and payout details.
type ProfileHandler struct {
	profiles storage.ProfileStore
	log      *zap.Logger
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(profiles storage.ProfileStore, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log}
}

// Register attaches profile routes to the mux.
func (h *ProfileHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /profile", h.handleGet)
	mux.HandleFunc("PUT /profile", h.handleUpdate)
}

func (h *ProfileHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.ProfileByUserID(r.Context(), user.ID)
	if err != nil {
		respond.StoreError(w, err, "failed to load profile")
		return
	}
	respond.JSON(w, http.StatusOK, "profile", profile)
}

func (h *ProfileHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	upd := storage.ProfileUpdate{
		Name:                  req.Name,
		BankAccountHolderName: req.BankAccountHolderName,
		BankAccountNumber:     req.BankAccountNumber,
		IFSCCode:              req.IFSCCode,
		BankName:              req.BankName,
		UPIID:                 req.UPIID,
	}

	if upd.TouchesBank() {
		current, err := h.profiles.ProfileByUserID(r.Context(), user.ID)
		if err != nil {
			respond.StoreError(w, err, "failed to load profile")
			return
		}
		// Bank details lock: once set, edits need the account password.
		if current.BankDetailsSet() {
			if req.CurrentPassword == "" {
				respond.Error(w, http.StatusForbidden, "bank details are locked, current password is required")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
				respond.Error(w, http.StatusForbidden, "incorrect password")
				return
			}
		}
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), user.ID, upd)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "profile not found")
			return
		}
		h.log.Error("update profile", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	respond.JSON(w, http.StatusOK, "profile updated", profile)
}

// requireUser extracts the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return user, ok
}
