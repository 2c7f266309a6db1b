// Package resolver decides whether a principal may perform an action on a page.
// It is the only place that knows how the four grant flags imply each other.
package resolver

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pageguard/internal/cache"
	"pageguard/internal/common"
	"pageguard/internal/metrics"
	"pageguard/internal/models"
	"pageguard/internal/permissions"
	"pageguard/internal/utils/logger"
)

type Resolver struct {
	db    *gorm.DB
	store *permissions.Store
	cache cache.PermissionCache
	log   *logger.Logger
}

func New(db *gorm.DB, store *permissions.Store, c cache.PermissionCache) *Resolver {
	return &Resolver{db: db, store: store, cache: c, log: logger.New("RESOLVER")}
}

// Evaluate applies the grant hierarchy to a single action:
// view is implied by any flag, edit by edit or delete, create and delete only by themselves.
func Evaluate(f models.Flags, action models.Action) bool {
	switch action {
	case models.ActionView:
		return f.Any()
	case models.ActionCreate:
		return f.CanCreate
	case models.ActionEdit:
		return f.CanEdit || f.CanDelete
	case models.ActionDelete:
		return f.CanDelete
	}
	return false
}

// Effective expands stored flags into the actions they allow.
func Effective(f models.Flags) models.Flags {
	return models.Flags{
		CanView:   Evaluate(f, models.ActionView),
		CanEdit:   Evaluate(f, models.ActionEdit),
		CanCreate: Evaluate(f, models.ActionCreate),
		CanDelete: Evaluate(f, models.ActionDelete),
	}
}

var denyMessages = map[models.Action]string{
	models.ActionView:   "You do not have permission to view this page",
	models.ActionCreate: "You do not have permission to create comments on this page",
	models.ActionEdit:   "You do not have permission to edit comments on this page",
	models.ActionDelete: "You do not have permission to delete comments on this page",
}

// DenyMessage is the message shown when action is refused on a page.
func DenyMessage(action models.Action) string {
	if msg, ok := denyMessages[action]; ok {
		return msg
	}
	return common.ErrForbidden.Message
}

// CanPerform reports whether principal may perform action on the named page.
// It fails closed: every error comes back with false.
func (r *Resolver) CanPerform(ctx context.Context, principal *models.User, pageName string, action models.Action) (bool, error) {
	if !action.Valid() {
		metrics.Decisions.WithLabelValues(string(action), metrics.OutcomeDeny).Inc()
		return false, common.Validation("action", "unknown action "+string(action))
	}

	flags, err := r.Flags(ctx, principal, pageName)
	if err != nil {
		outcome := metrics.OutcomeDeny
		if errors.Is(err, common.ErrNotFound) {
			outcome = metrics.OutcomeNotFound
		}
		metrics.Decisions.WithLabelValues(string(action), outcome).Inc()
		return false, err
	}

	allowed := Evaluate(flags, action)
	outcome := metrics.OutcomeDeny
	if allowed {
		outcome = metrics.OutcomeAllow
	}
	metrics.Decisions.WithLabelValues(string(action), outcome).Inc()
	return allowed, nil
}

// Flags returns the raw flags principal holds on pageName. Superadmins hold every flag,
// inactive principals and missing grants hold none. An unknown page is NOT_FOUND.
func (r *Resolver) Flags(ctx context.Context, principal *models.User, pageName string) (models.Flags, error) {
	if principal == nil {
		return models.Flags{}, common.ErrUnauthorized
	}
	if principal.IsSuperAdmin() {
		return models.AllFlags, nil
	}
	if !principal.IsActive {
		return models.Flags{}, nil
	}

	grants, err := r.grants(ctx, principal.ID)
	if err != nil {
		return models.Flags{}, err
	}
	if f, ok := grants[pageName]; ok {
		return f, nil
	}

	if _, err := models.GetPageByName(pageName, r.db.WithContext(ctx)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Flags{}, common.NotFound("page")
		}
		return models.Flags{}, err
	}
	return models.Flags{}, nil
}

// PageAccess is a page together with the actions the caller may perform on it.
type PageAccess struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Permissions models.Flags `json:"permissions"`
}

// EffectivePages lists the pages principal can view with effective flags, ordered by name.
func (r *Resolver) EffectivePages(ctx context.Context, principal *models.User) ([]PageAccess, error) {
	if principal == nil {
		return nil, common.ErrUnauthorized
	}
	out := []PageAccess{}

	if principal.IsSuperAdmin() {
		var pages []models.Page
		if err := r.db.WithContext(ctx).Where("is_deleted = ?", false).Order("name ASC").Find(&pages).Error; err != nil {
			return nil, err
		}
		for _, p := range pages {
			out = append(out, PageAccess{ID: p.ID, Name: p.Name, Description: p.Description, URL: p.URL, Permissions: models.AllFlags})
		}
		return out, nil
	}
	if !principal.IsActive {
		return out, nil
	}

	grants, err := r.store.ListGrants(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	for _, g := range grants {
		f := g.Flags()
		if !Evaluate(f, models.ActionView) || g.Page == nil {
			continue
		}
		out = append(out, PageAccess{
			ID:          g.Page.ID,
			Name:        g.Page.Name,
			Description: g.Page.Description,
			URL:         g.Page.URL,
			Permissions: Effective(f),
		})
	}
	return out, nil
}

// Invalidate drops the cached grants of userID. Callers that change grants must
// call it before reporting success.
func (r *Resolver) Invalidate(ctx context.Context, userID string) error {
	metrics.CacheInvalidations.Inc()
	if err := r.cache.Invalidate(ctx, userID); err != nil {
		return r.log.Error("Failed to invalidate permissions of %s", err, userID)
	}
	return nil
}

func (r *Resolver) grants(ctx context.Context, userID string) (cache.Grants, error) {
	cached, ok, err := r.cache.Get(ctx, userID)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
		r.log.Warn("Permission cache read failed for %s, using store: %v", userID, err)
	case ok:
		metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
		return cached, nil
	default:
		metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
	}

	gen, genErr := r.cache.Generation(ctx, userID)

	rows, err := r.store.ListGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	grants := make(cache.Grants, len(rows))
	for _, g := range rows {
		if g.Page != nil {
			grants[g.Page.Name] = g.Flags()
		}
	}

	if genErr != nil {
		r.log.Warn("Permission cache generation unavailable for %s: %v", userID, genErr)
		return grants, nil
	}
	if err := r.cache.Set(ctx, userID, gen, grants); err != nil {
		r.log.Warn("Failed to cache permissions of %s: %v", userID, err)
	}
	return grants, nil
}
