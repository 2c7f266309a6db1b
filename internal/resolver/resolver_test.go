package resolver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pageguard/internal/cache"
	"pageguard/internal/common"
	"pageguard/internal/models"
	"pageguard/internal/permissions"
	"pageguard/internal/testutil"
)

var allActions = []models.Action{models.ActionView, models.ActionEdit, models.ActionCreate, models.ActionDelete}

type fixture struct {
	db       *gorm.DB
	store    *permissions.Store
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	store := permissions.NewStore(gdb)
	return &fixture{db: gdb, store: store, resolver: New(gdb, store, cache.NewMemory(5*time.Minute))}
}

// allFlagCombinations enumerates the 16 possible grants.
func allFlagCombinations() []models.Flags {
	var out []models.Flags
	for i := 0; i < 16; i++ {
		out = append(out, models.Flags{
			CanView:   i&1 != 0,
			CanEdit:   i&2 != 0,
			CanCreate: i&4 != 0,
			CanDelete: i&8 != 0,
		})
	}
	return out
}

func TestEvaluateHierarchy(t *testing.T) {
	for _, f := range allFlagCombinations() {
		assert.Equal(t, f.CanView || f.CanEdit || f.CanCreate || f.CanDelete, Evaluate(f, models.ActionView), "view %+v", f)
		assert.Equal(t, f.CanEdit || f.CanDelete, Evaluate(f, models.ActionEdit), "edit %+v", f)
		assert.Equal(t, f.CanCreate, Evaluate(f, models.ActionCreate), "create %+v", f)
		assert.Equal(t, f.CanDelete, Evaluate(f, models.ActionDelete), "delete %+v", f)
	}
	assert.False(t, Evaluate(models.AllFlags, models.Action("approve")))
}

func TestCanPerformMatchesStoredGrant(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	page := testutil.Page(t, fx.db, "order_list")

	for i, f := range allFlagCombinations() {
		user := testutil.CreateUser(t, fx.db, fmt.Sprintf("user%d@example.com", i), models.UserRoleRegular)
		_, err := fx.store.UpsertGrant(ctx, user, page, f)
		require.NoError(t, err)

		for _, action := range allActions {
			got, err := fx.resolver.CanPerform(ctx, user, page.Name, action)
			require.NoError(t, err)
			assert.Equal(t, Evaluate(f, action), got, "%s with %+v", action, f)
		}
	}
}

func TestDeleteOnlyGrantOnClients(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	user := testutil.CreateUser(t, fx.db, "kim@example.com", models.UserRoleRegular)
	_, err := fx.store.UpsertGrant(ctx, user, testutil.Page(t, fx.db, "clients"), models.Flags{CanDelete: true})
	require.NoError(t, err)

	want := map[models.Action]bool{
		models.ActionView:   true,
		models.ActionEdit:   true,
		models.ActionCreate: false,
		models.ActionDelete: true,
	}
	for action, expected := range want {
		got, err := fx.resolver.CanPerform(ctx, user, "clients", action)
		require.NoError(t, err)
		assert.Equal(t, expected, got, string(action))
	}
}

func TestSuperAdminAlwaysAllowed(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	admin := testutil.CreateUser(t, fx.db, "root@example.com", models.UserRoleSuperAdmin)
	admin.IsActive = false

	for _, page := range models.DefaultPages {
		for _, action := range allActions {
			got, err := fx.resolver.CanPerform(ctx, admin, page.Name, action)
			require.NoError(t, err)
			assert.True(t, got)
		}
	}

	got, err := fx.resolver.CanPerform(ctx, admin, "not_a_page", models.ActionDelete)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestInactivePrincipalDenied(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	user := testutil.CreateUser(t, fx.db, "ivy@example.com", models.UserRoleRegular)
	_, err := fx.store.UpsertGrant(ctx, user, testutil.Page(t, fx.db, "clients"), models.AllFlags)
	require.NoError(t, err)

	user.IsActive = false
	for _, action := range allActions {
		got, err := fx.resolver.CanPerform(ctx, user, "clients", action)
		require.NoError(t, err)
		assert.False(t, got)
	}
}

func TestMissingGrantDenied(t *testing.T) {
	fx := newFixture(t)
	user := testutil.CreateUser(t, fx.db, "nog@example.com", models.UserRoleRegular)

	got, err := fx.resolver.CanPerform(context.Background(), user, "clients", models.ActionView)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestUnknownPageDeniedWithNotFound(t *testing.T) {
	fx := newFixture(t)
	user := testutil.CreateUser(t, fx.db, "una@example.com", models.UserRoleRegular)

	got, err := fx.resolver.CanPerform(context.Background(), user, "payroll", models.ActionView)
	assert.False(t, got)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGrantOnDeletedPageIgnored(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, fx.db, "ida@example.com", models.UserRoleRegular)
	page := testutil.Page(t, fx.db, "clients")
	_, err := fx.store.UpsertGrant(ctx, user, page, models.AllFlags)
	require.NoError(t, err)
	require.NoError(t, fx.db.Model(page).Update("is_deleted", true).Error)

	got, err := fx.resolver.CanPerform(ctx, user, "clients", models.ActionView)
	assert.False(t, got)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUnknownActionDenied(t *testing.T) {
	fx := newFixture(t)
	user := testutil.CreateUser(t, fx.db, "act@example.com", models.UserRoleRegular)

	got, err := fx.resolver.CanPerform(context.Background(), user, "clients", models.Action("approve"))
	assert.False(t, got)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestNilPrincipalUnauthorized(t *testing.T) {
	fx := newFixture(t)

	got, err := fx.resolver.CanPerform(context.Background(), nil, "clients", models.ActionView)
	assert.False(t, got)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestCacheServesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	user := testutil.CreateUser(t, fx.db, "cal@example.com", models.UserRoleRegular)
	page := testutil.Page(t, fx.db, "clients")

	// Prime the cache with a deny.
	got, err := fx.resolver.CanPerform(ctx, user, page.Name, models.ActionEdit)
	require.NoError(t, err)
	require.False(t, got)

	// A write that skips invalidation is not observed within the TTL.
	_, err = fx.store.UpsertGrant(ctx, user, page, models.Flags{CanEdit: true})
	require.NoError(t, err)
	got, err = fx.resolver.CanPerform(ctx, user, page.Name, models.ActionEdit)
	require.NoError(t, err)
	assert.False(t, got)

	require.NoError(t, fx.resolver.Invalidate(ctx, user.ID))
	got, err = fx.resolver.CanPerform(ctx, user, page.Name, models.ActionEdit)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCacheCoherenceWithRedis(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	_, client := testutil.NewRedis(t)
	store := permissions.NewStore(gdb)
	r := New(gdb, store, cache.NewRedis(client, 5*time.Minute))
	user := testutil.CreateUser(t, gdb, "red@example.com", models.UserRoleRegular)
	page := testutil.Page(t, gdb, "suppliers")

	got, err := r.CanPerform(ctx, user, page.Name, models.ActionEdit)
	require.NoError(t, err)
	require.False(t, got)

	_, err = store.UpsertGrant(ctx, user, page, models.Flags{CanEdit: true})
	require.NoError(t, err)
	require.NoError(t, r.Invalidate(ctx, user.ID))

	got, err = r.CanPerform(ctx, user, page.Name, models.ActionEdit)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEffectivePages(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	user := testutil.CreateUser(t, fx.db, "eff@example.com", models.UserRoleRegular)
	_, err := fx.store.UpsertGrant(ctx, user, testutil.Page(t, fx.db, "suppliers"), models.Flags{CanDelete: true})
	require.NoError(t, err)
	_, err = fx.store.UpsertGrant(ctx, user, testutil.Page(t, fx.db, "clients"), models.Flags{CanView: true})
	require.NoError(t, err)
	_, err = fx.store.UpsertGrant(ctx, user, testutil.Page(t, fx.db, "order_list"), models.Flags{})
	require.NoError(t, err)

	pages, err := fx.resolver.EffectivePages(ctx, user)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "clients", pages[0].Name)
	assert.Equal(t, models.Flags{CanView: true}, pages[0].Permissions)
	assert.Equal(t, "suppliers", pages[1].Name)
	assert.Equal(t, models.Flags{CanView: true, CanEdit: true, CanDelete: true}, pages[1].Permissions)

	admin := testutil.CreateUser(t, fx.db, "boss@example.com", models.UserRoleSuperAdmin)
	all, err := fx.resolver.EffectivePages(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, len(models.DefaultPages))
	for _, p := range all {
		assert.Equal(t, models.AllFlags, p.Permissions)
	}

	user.IsActive = false
	none, err := fx.resolver.EffectivePages(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, none)
}
