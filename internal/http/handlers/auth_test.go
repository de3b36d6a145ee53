package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pgpay/pgpay-backend/internal/auth"
	"github.com/pgpay/pgpay-backend/internal/mailer"
	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

type authFixture struct {
	users    *fakeUserStore
	profiles *fakeProfileStore
	perms    *fakePermissionStore
	resends  *fakeResendStore
	mux      *http.ServeMux
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    newFakeUserStore(),
		profiles: newFakeProfileStore(),
		perms:    newFakePermissionStore(),
		resends:  &fakeResendStore{},
		mux:      http.NewServeMux(),
	}
	tokens := auth.NewTokenManager("test-secret", "pgpay-test", time.Hour)
	NewAuthHandler(f.users, f.profiles, f.perms, f.resends, tokens,
		mailer.LogMailer{Log: zap.NewNop()}, zap.NewNop(),
		"http://localhost:8080", 24*time.Hour, 3).Register(f.mux)
	return f
}

func (f *authFixture) addVerifiedUser(t *testing.T, email, phone, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	user := models.User{
		ID:              uuid.NewString(),
		Email:           email,
		PasswordHash:    string(hash),
		EmailVerifiedAt: &now,
	}
	f.users.add(user)
	f.profiles.add(models.Profile{ID: uuid.NewString(), UserID: user.ID, Email: email, Phone: phone})
	return user
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	cases := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "nope", "phone": "123456", "password": "secret1"}},
		{"short phone", map[string]string{"email": "a@b.com", "phone": "12345", "password": "secret1"}},
		{"short password", map[string]string{"email": "a@b.com", "phone": "123456", "password": "12345"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, f.mux, "/auth/register", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterAndDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	body := map[string]string{"name": "Asha", "email": "asha@example.com", "phone": "9876543210", "password": "secret1"}

	rec := postJSON(t, f.mux, "/auth/register", body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = postJSON(t, f.mux, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginByEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.addVerifiedUser(t, "user@example.com", "9876543210", "secret1")

	rec := postJSON(t, f.mux, "/auth/login", map[string]string{"identifier": "user@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.Token)
}

func TestLoginByPhoneResolvesEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.addVerifiedUser(t, "user@example.com", "9876543210", "secret1")

	rec := postJSON(t, f.mux, "/auth/login", map[string]string{"identifier": "+9876543210", "password": "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, f.mux, "/auth/login", map[string]string{"identifier": "1112223334", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.addVerifiedUser(t, "user@example.com", "9876543210", "secret1")

	rec := postJSON(t, f.mux, "/auth/login", map[string]string{"identifier": "user@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsUnverifiedEmail(t *testing.T) {
	f := newAuthFixture(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	f.users.add(models.User{ID: uuid.NewString(), Email: "new@example.com", PasswordHash: string(hash)})

	rec := postJSON(t, f.mux, "/auth/login", map[string]string{"identifier": "new@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVerifyEmail(t *testing.T) {
	f := newAuthFixture(t)
	token := uuid.NewString()
	f.users.add(models.User{ID: uuid.NewString(), Email: "new@example.com", VerifyToken: token})

	req := httptest.NewRequest(http.MethodGet, "/auth/verify?token="+token, nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A second use of the same token fails.
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req.Clone(req.Context()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResendSuccessReportsRemaining(t *testing.T) {
	f := newAuthFixture(t)
	f.resends.user = models.User{ID: uuid.NewString(), Email: "new@example.com", VerifyToken: uuid.NewString()}
	f.resends.quota = storage.ResendQuota{Attempts: 2, Remaining: 1}

	rec := postJSON(t, f.mux, "/auth/resend-verification", map[string]string{"email": "new@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			AttemptsRemaining int `json:"attempts_remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.AttemptsRemaining)
}

func TestResendRateLimited(t *testing.T) {
	f := newAuthFixture(t)
	f.resends.err = storage.ErrRateLimited
	f.resends.quota = storage.ResendQuota{Attempts: 3, Remaining: 0, ResetIn: 90 * time.Minute}

	rec := postJSON(t, f.mux, "/auth/resend-verification", map[string]string{"email": "new@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "90 minutes")
}

func TestResendUnknownAndVerified(t *testing.T) {
	f := newAuthFixture(t)

	f.resends.err = storage.ErrNotFound
	rec := postJSON(t, f.mux, "/auth/resend-verification", map[string]string{"email": "missing@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.resends.err = storage.ErrAlreadyVerified
	rec = postJSON(t, f.mux, "/auth/resend-verification", map[string]string{"email": "done@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientIPPrefersProxyHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "2.2.2.2")
	assert.Equal(t, "2.2.2.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "3.3.3.3, 4.4.4.4")
	assert.Equal(t, "3.3.3.3", clientIP(req))

	req.Header.Set("CF-Connecting-IP", "5.5.5.5")
	assert.Equal(t, "5.5.5.5", clientIP(req))
}
