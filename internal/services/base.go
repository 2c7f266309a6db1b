package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"pageguard/internal/common"
)

// ReadService lists and fetches rows of a model. Writes to users, pages and
// grants go through AdminService so that cascades and cache invalidation run.
type ReadService[T any] interface {
	Get(ctx context.Context, id string, includes ...string) (*T, error)
	List(ctx context.Context, q ListQuery) ([]T, int64, error)
}

// ListQuery is a paginated, filtered and sorted listing.
type ListQuery struct {
	Page     int
	Limit    int
	Filters  map[string]interface{}
	Sort     string
	Desc     bool
	Includes []string
}

// ReadServiceImpl implements ReadService
type ReadServiceImpl[T any] struct {
	db        *gorm.DB
	modelType T
	name      string
	columns   map[string]bool
}

// NewReadService creates a new read service. Filters and sort keys are limited
// to the model's own columns.
func NewReadService[T any](db *gorm.DB, modelType T) (ReadService[T], error) {
	s, err := schema.Parse(&modelType, &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema of %s: %w", reflect.TypeOf(modelType).Name(), err)
	}

	columns := make(map[string]bool, len(s.DBNames))
	for _, name := range s.DBNames {
		columns[name] = true
	}

	return &ReadServiceImpl[T]{
		db:        db,
		modelType: modelType,
		name:      reflect.TypeOf(modelType).Name(),
		columns:   columns,
	}, nil
}

// applyIncludes adds preload statements to the query for each include
func (s *ReadServiceImpl[T]) applyIncludes(query *gorm.DB, includes ...string) *gorm.DB {
	for _, include := range includes {
		query = query.Preload(include)
	}
	return query
}

func (s *ReadServiceImpl[T]) Get(ctx context.Context, id string, includes ...string) (*T, error) {
	if !validID(id) {
		return nil, common.NotFound(s.name)
	}
	var entity T
	query := s.applyIncludes(s.db.WithContext(ctx), includes...)

	// filter deleted entities
	query = query.Where("is_deleted = ?", false)

	err := query.First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFound(s.name)
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (s *ReadServiceImpl[T]) List(ctx context.Context, q ListQuery) ([]T, int64, error) {
	var entities []T
	var total int64

	query := s.db.WithContext(ctx).Model(&s.modelType).Where("is_deleted = ?", false)

	// Apply filters
	for key, value := range q.Filters {
		if !s.columns[key] {
			return nil, 0, common.Validation(key, "unknown filter")
		}
		query = query.Where(key+" = ?", value)
	}

	// Get total count before pagination
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = s.applyIncludes(query, q.Includes...)

	// Apply sort
	if q.Sort != "" {
		if !s.columns[q.Sort] {
			return nil, 0, common.Validation("sort", "unknown sort field")
		}
		order := q.Sort + " ASC"
		if q.Desc {
			order = q.Sort + " DESC"
		}
		query = query.Order(order)
	} else {
		query = query.Order("created_at DESC")
	}

	// Apply pagination
	if q.Page > 0 && q.Limit > 0 {
		query = query.Offset((q.Page - 1) * q.Limit).Limit(q.Limit)
	}

	if err := query.Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

// validID keeps malformed ids away from uuid columns.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
