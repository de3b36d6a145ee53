package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pgpay/pgpay-backend/internal/http/respond"
	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/models/dto"
	"github.com/pgpay/pgpay-backend/internal/notify"
	"github.com/pgpay/pgpay-backend/internal/proofstore"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

// TicketHandler owns the user-facing ticket surface: submission, history,
// and the realtime update stream.
type TicketHandler struct {
	tickets  storage.TicketStore
	settings storage.SettingsStore
	perms    storage.PermissionStore
	proofs   proofstore.Store
	hub      *notify.Hub
	log      *zap.Logger

	signedTTL time.Duration
}

// NewTicketHandler constructs the handler.
func NewTicketHandler(tickets storage.TicketStore, settings storage.SettingsStore, perms storage.PermissionStore,
	proofs proofstore.Store, hub *notify.Hub, log *zap.Logger, signedTTL time.Duration) *TicketHandler {
	return &TicketHandler{
		tickets:  tickets,
		settings: settings,
		perms:    perms,
		proofs:   proofs,
		hub:      hub,
		log:      log,

		signedTTL: signedTTL,
	}
}

// Register attaches ticket routes to the mux.
func (h *TicketHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /tickets", h.handleCreate)
	mux.HandleFunc("GET /tickets", h.handleList)
	mux.HandleFunc("GET /tickets/events", h.handleEvents)
	mux.HandleFunc("GET /tickets/{id}", h.handleGet)
	mux.HandleFunc("GET /settings", h.handleSettings)
}

func (h *TicketHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	// Headroom above the proof cap for the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxProofBytes+64<<10)
	if err := r.ParseMultipartForm(maxProofBytes); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid multipart payload or proof too large")
		return
	}

	amount, err := validateAmount(r.FormValue("amount"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	notes := strings.TrimSpace(r.FormValue("notes"))
	if err := validateNotes(notes); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket := models.Ticket{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Amount: amount,
		Status: models.StatusPending,
	}
	if notes != "" {
		ticket.Notes = &notes
	}

	if rawType := strings.TrimSpace(r.FormValue("usdt_type")); rawType != "" {
		usdtType := models.UsdtType(rawType)
		if !usdtType.Valid() {
			respond.Error(w, http.StatusBadRequest, "usdt_type must be one of mixed, stock, game")
			return
		}
		ticket.UsdtType = &usdtType
		ticket.UsdtRate = h.currentRate(r, usdtType)
	}

	if file, header, err := r.FormFile("proof"); err == nil {
		defer file.Close()
		if err := validateProof(header); err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		contentType := header.Header.Get("Content-Type")
		path := fmt.Sprintf("%s/%s%s", user.ID, uuid.NewString(), proofExt(contentType))
		if err := h.proofs.Upload(r.Context(), path, contentType, file); err != nil {
			h.log.Error("upload proof", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to store proof image")
			return
		}
		ticket.ProofURL = &path
	}

	created, err := h.tickets.CreateTicket(r.Context(), ticket)
	if err != nil {
		h.log.Error("create ticket", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to create ticket")
		return
	}
	respond.JSON(w, http.StatusCreated, "ticket submitted", created)
}

// currentRate snapshots the configured rate for the chosen category at
// submission time. A missing or malformed setting records no rate.
func (h *TicketHandler) currentRate(r *http.Request, usdtType models.UsdtType) *decimal.Decimal {
	setting, err := h.settings.Setting(r.Context(), models.RateSettingKey(usdtType))
	if err != nil || setting.Value == nil {
		return nil
	}
	rate, err := decimal.NewFromString(*setting.Value)
	if err != nil {
		h.log.Warn("unparseable rate setting", zap.String("key", setting.Key), zap.Error(err))
		return nil
	}
	return &rate
}

func (h *TicketHandler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	tickets, err := h.tickets.TicketsByUser(r.Context(), user.ID)
	if err != nil {
		h.log.Error("list tickets", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	respond.JSON(w, http.StatusOK, "tickets", tickets)
}

func (h *TicketHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ticket, err := h.tickets.TicketByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.StoreError(w, err, "failed to load ticket")
		return
	}
	if ticket.UserID != user.ID {
		access, err := h.perms.ResolveAccess(r.Context(), user.ID)
		if err != nil || !access.Has(models.PermManageTickets) {
			respond.Error(w, http.StatusNotFound, "not found")
			return
		}
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

// handleEvents streams the caller's ticket updates as server-sent events.
func (h *TicketHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.hub.Subscribe(user.ID)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ticket := <-events:
			payload, err := json.Marshal(ticket)
			if err != nil {
				h.log.Error("marshal ticket event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: ticket\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// handleSettings is the public configuration read backing the submit
// screen (wallet address, current rates, theming).
func (h *TicketHandler) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.AllSettings(r.Context())
	if err != nil {
		h.log.Error("load settings", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	respond.JSON(w, http.StatusOK, "settings", settings)
}
