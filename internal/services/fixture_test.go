package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pageguard/internal/cache"
	"pageguard/internal/config"
	"pageguard/internal/ledger"
	"pageguard/internal/models"
	"pageguard/internal/permissions"
	"pageguard/internal/resolver"
	"pageguard/internal/testutil"
	"pageguard/internal/utils"
)

const signingKey = "archive-signing-key"

type fixture struct {
	db       *gorm.DB
	store    *permissions.Store
	resolver *resolver.Resolver
	ledger   *ledger.Ledger
	archiver *HistoryArchiver
	comments *CommentService
	admin    *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	store := permissions.NewStore(db)
	r := resolver.New(db, store, cache.NewMemory(5*time.Minute))
	l := ledger.New(db)
	archiver := NewHistoryArchiver(signingKey, nil)

	admin, err := NewAdminService(db, store, r, archiver)
	require.NoError(t, err)

	return &fixture{
		db:       db,
		store:    store,
		resolver: r,
		ledger:   l,
		archiver: archiver,
		comments: NewCommentService(db, r, l),
		admin:    admin,
	}
}

func (f *fixture) grant(t *testing.T, user *models.User, pageName string, flags models.Flags) {
	t.Helper()
	page := testutil.Page(t, f.db, pageName)
	_, err := f.admin.UpsertPermission(context.Background(), user.ID, page.ID, flags)
	require.NoError(t, err)
}

type fakeLimiter struct {
	deny  map[string]bool
	err   error
	calls []string
}

func (l *fakeLimiter) Allow(_ context.Context, identifier string) (bool, error) {
	l.calls = append(l.calls, identifier)
	if l.err != nil {
		return false, l.err
	}
	return !l.deny[identifier], nil
}

type dispatched struct {
	email, name, code string
	ttl               time.Duration
}

type fakeDispatcher struct {
	sent []dispatched
	err  error
}

func (d *fakeDispatcher) EnqueueOTPEmail(_ context.Context, email, name, code string, ttl time.Duration) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, dispatched{email, name, code, ttl})
	return nil
}

func (d *fakeDispatcher) last(t *testing.T) dispatched {
	t.Helper()
	require.NotEmpty(t, d.sent)
	return d.sent[len(d.sent)-1]
}

func newAuthService(db *gorm.DB, limiter OTPLimiter, dispatcher OTPDispatcher) *AuthService {
	issuer := utils.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(db, issuer, limiter, dispatcher, config.OTPConfig{
		Length:      6,
		TTL:         10 * time.Minute,
		MaxRequests: 3,
		Window:      10 * time.Minute,
	})
}
