package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pgpay/pgpay-backend/internal/auth"
	"github.com/pgpay/pgpay-backend/internal/http/respond"
	"github.com/pgpay/pgpay-backend/internal/mailer"
	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/models/dto"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

// AuthHandler owns registration, login, and email verification.
type AuthHandler struct {
	users    storage.UserStore
	profiles storage.ProfileStore
	perms    storage.PermissionStore
	resends  storage.ResendStore
	tokens   *auth.TokenManager
	mail     mailer.Mailer
	log      *zap.Logger

	baseURL      string
	resendWindow time.Duration
	resendMax    int
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(users storage.UserStore, profiles storage.ProfileStore, perms storage.PermissionStore,
	resends storage.ResendStore, tokens *auth.TokenManager, mail mailer.Mailer, log *zap.Logger,
	baseURL string, resendWindow time.Duration, resendMax int) *AuthHandler {
	return &AuthHandler{
		users:    users,
		profiles: profiles,
		perms:    perms,
		resends:  resends,
		tokens:   tokens,
		mail:     mail,
		log:      log,

		baseURL:      baseURL,
		resendWindow: resendWindow,
		resendMax:    resendMax,
	}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("GET /auth/verify", h.handleVerify)
	mux.HandleFunc("POST /auth/resend-verification", h.handleResend)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	phone := normalizePhone(req.Phone)
	if err := validateEmail(email); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validatePhone(phone); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validatePassword(req.Password); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(passwordHash),
		VerifyToken:  uuid.NewString(),
	}
	profile := models.Profile{
		ID:    uuid.NewString(),
		Email: email,
		Phone: phone,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		profile.Name = &name
	}

	created, err := h.users.CreateUser(r.Context(), user, profile)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, "an account with this email already exists")
			return
		}
		h.log.Error("create user", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	if err := h.mail.SendVerification(r.Context(), created.Email, h.verifyLink(user.VerifyToken)); err != nil {
		// Account exists either way; the user can ask for a resend.
		h.log.Error("send verification mail", zap.String("email", created.Email), zap.Error(err))
	}

	respond.JSON(w, http.StatusCreated, "account created, verification email sent", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	email := identifier
	if looksLikePhone(identifier) {
		profile, err := h.profiles.ProfileByPhone(r.Context(), normalizePhone(identifier))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusUnauthorized, "no account found with this phone number")
				return
			}
			h.log.Error("phone lookup", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to look up account")
			return
		}
		email = profile.Email
	}

	user, err := h.users.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("fetch user", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to fetch account")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.Verified() {
		respond.Error(w, http.StatusForbidden, "email not verified")
		return
	}

	access, err := h.perms.ResolveAccess(r.Context(), user.ID)
	if err != nil {
		h.log.Error("resolve access", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to resolve permissions")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	resp := dto.LoginResponse{Token: token, User: user, IsAdmin: access.IsAdmin()}
	for grant := range access.Grants {
		resp.Grants = append(resp.Grants, grant)
	}
	respond.JSON(w, http.StatusOK, "login successful", resp)
}

func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		respond.Error(w, http.StatusBadRequest, "token is required")
		return
	}
	user, err := h.users.MarkEmailVerified(r.Context(), token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "invalid or expired verification link")
			return
		}
		h.log.Error("verify email", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to verify email")
		return
	}
	respond.JSON(w, http.StatusOK, "email verified", user)
}

func (h *AuthHandler) handleResend(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		respond.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	ip := clientIP(r)
	user, quota, err := h.resends.ResendVerificationAttempt(r.Context(), ip, email, h.resendWindow, h.resendMax)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrRateLimited):
			minutes := int(math.Ceil(quota.ResetIn.Minutes()))
			respond.Error(w, http.StatusTooManyRequests,
				fmt.Sprintf("rate limit exceeded: only %d verification emails per %d hours, try again in %d minutes",
					h.resendMax, int(h.resendWindow.Hours()), minutes))
		case errors.Is(err, storage.ErrNotFound):
			respond.Error(w, http.StatusNotFound, "no account found with this email address")
		case errors.Is(err, storage.ErrAlreadyVerified):
			respond.Error(w, http.StatusBadRequest, "email is already verified, please sign in")
		default:
			h.log.Error("resend attempt", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to process resend request")
		}
		return
	}

	if err := h.mail.SendVerification(r.Context(), user.Email, h.verifyLink(user.VerifyToken)); err != nil {
		h.log.Error("send verification mail", zap.String("email", user.Email), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to send verification email")
		return
	}

	respond.JSON(w, http.StatusOK, "verification email sent",
		dto.ResendVerificationResponse{AttemptsRemaining: quota.Remaining})
}

func (h *AuthHandler) verifyLink(token string) string {
	return fmt.Sprintf("%s/auth/verify?token=%s", h.baseURL, token)
}

// clientIP resolves the originating address behind common proxy headers.
func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
