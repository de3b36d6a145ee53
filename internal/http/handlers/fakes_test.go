package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pgpay/pgpay-backend/internal/middleware"
	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

// withUser injects an authenticated user the way the auth middleware does.
func withUser(user models.User, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), user)))
	})
}

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]models.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[string]models.Ticket)}
}

func (f *fakeTicketStore) CreateTicket(_ context.Context, t models.Ticket) (models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	t.Status = models.StatusPending
	t.CreatedAt = now
	t.UpdatedAt = now
	f.tickets[t.ID] = t
	return t, nil
}

func (f *fakeTicketStore) TicketByID(_ context.Context, id string) (models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return models.Ticket{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeTicketStore) TicketsByUser(_ context.Context, userID string) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTicketStore) ListTickets(_ context.Context, status *models.TicketStatus) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.tickets {
		if status == nil || t.Status == *status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTicketStore) TransitionTicket(_ context.Context, id string, to models.TicketStatus, actorID string, note *string) (models.Ticket, models.TicketStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return models.Ticket{}, "", storage.ErrNotFound
	}
	if !models.CanTransition(t.Status, to) {
		return models.Ticket{}, "", fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, t.Status, to)
	}
	prev := t.Status
	now := time.Now()
	t.Status = to
	t.AdminNotes = note
	t.ProcessedBy = &actorID
	t.ProcessedAt = &now
	t.UpdatedAt = now
	f.tickets[id] = t
	return t, prev, nil
}

func (f *fakeTicketStore) ClearProofReferences(_ context.Context, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cleared int64
	for id, t := range f.tickets {
		if t.ProofURL != nil && strings.Contains(*t.ProofURL, path) {
			t.ProofURL = nil
			f.tickets[id] = t
			cleared++
		}
	}
	return cleared, nil
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	settings map[string]models.AppSetting
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{settings: make(map[string]models.AppSetting)}
}

func (f *fakeSettingsStore) set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = models.AppSetting{Key: key, Value: &value, UpdatedAt: time.Now()}
}

func (f *fakeSettingsStore) Setting(_ context.Context, key string) (models.AppSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[key]
	if !ok {
		return models.AppSetting{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeSettingsStore) AllSettings(_ context.Context) ([]models.AppSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AppSetting
	for _, s := range f.settings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeSettingsStore) UpsertSetting(_ context.Context, key string, value *string, updatedBy string) (models.AppSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := models.AppSetting{Key: key, Value: value, UpdatedBy: &updatedBy, UpdatedAt: time.Now()}
	f.settings[key] = s
	return s, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
	fail    bool
}

func (f *fakeAuditStore) AppendAudit(_ context.Context, e models.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("audit store unavailable")
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAuditStore) ListAudit(_ context.Context, limit int) ([]models.AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AuditLogEntry, len(f.entries))
	copy(out, f.entries)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePermissionStore struct {
	mu     sync.Mutex
	access map[string]models.AdminAccess
	grants []models.PermissionGrant
}

func newFakePermissionStore() *fakePermissionStore {
	return &fakePermissionStore{access: make(map[string]models.AdminAccess)}
}

func (f *fakePermissionStore) ResolveAccess(_ context.Context, userID string) (models.AdminAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.access[userID]; ok {
		return a, nil
	}
	return models.NoAccess(), nil
}

func (f *fakePermissionStore) Grant(_ context.Context, userID string, perm models.Permission, grantedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.grants {
		if g.UserID == userID && g.Permission == perm {
			return storage.ErrAlreadyExists
		}
	}
	f.grants = append(f.grants, models.PermissionGrant{UserID: userID, Permission: perm, GrantedBy: &grantedBy})
	return nil
}

func (f *fakePermissionStore) Revoke(_ context.Context, userID string, perm models.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.grants {
		if g.UserID == userID && g.Permission == perm {
			f.grants = append(f.grants[:i], f.grants[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakePermissionStore) ListAdmins(_ context.Context) ([]storage.AdminSummary, error) {
	return nil, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (f *fakeUserStore) add(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeUserStore) CreateUser(_ context.Context, user models.User, _ models.Profile) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) UserByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (f *fakeUserStore) MarkEmailVerified(_ context.Context, token string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.VerifyToken == token && u.EmailVerifiedAt == nil {
			now := time.Now()
			u.EmailVerifiedAt = &now
			u.VerifyToken = ""
			f.users[id] = u
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]models.Profile // keyed by user ID
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]models.Profile)}
}

func (f *fakeProfileStore) add(p models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.UserID] = p
}

func (f *fakeProfileStore) ProfileByUserID(_ context.Context, userID string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) ProfileByPhone(_ context.Context, phone string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Phone == phone {
			return p, nil
		}
	}
	return models.Profile{}, storage.ErrNotFound
}

func (f *fakeProfileStore) UpdateProfile(_ context.Context, userID string, upd storage.ProfileUpdate) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	apply := func(dst **string, src *string) {
		if src != nil {
			*dst = src
		}
	}
	apply(&p.Name, upd.Name)
	apply(&p.BankAccountHolderName, upd.BankAccountHolderName)
	apply(&p.BankAccountNumber, upd.BankAccountNumber)
	apply(&p.IFSCCode, upd.IFSCCode)
	apply(&p.BankName, upd.BankName)
	apply(&p.UPIID, upd.UPIID)
	p.UpdatedAt = time.Now()
	f.profiles[userID] = p
	return p, nil
}

func (f *fakeProfileStore) ListUsers(_ context.Context) ([]storage.UserOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.UserOverview
	for _, p := range f.profiles {
		out = append(out, storage.UserOverview{Profile: p})
	}
	return out, nil
}

type fakeResendStore struct {
	user  models.User
	quota storage.ResendQuota
	err   error
}

func (f *fakeResendStore) ResendVerificationAttempt(_ context.Context, _, _ string, _ time.Duration, _ int) (models.User, storage.ResendQuota, error) {
	return f.user, f.quota, f.err
}
