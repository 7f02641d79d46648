package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/checkout-reconciler/pkg/db"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
)

// Store is a generic record store keyed by a string "id" column. Lookups by
// field are limited to an explicit whitelist so callers never build SQL from
// untrusted column names.
type Store[T any] struct {
	db     *gorm.DB
	fields map[string]struct{}
}

// NewStore builds a store for T that allows FindByField/CountByField on fields.
func NewStore[T any](db *gorm.DB, fields ...string) *Store[T] {
	allowed := make(map[string]struct{}, len(fields)+1)
	allowed["id"] = struct{}{}
	for _, f := range fields {
		allowed[f] = struct{}{}
	}
	return &Store[T]{db: db, fields: allowed}
}

// WithTx returns a copy of the store bound to tx.
func (s *Store[T]) WithTx(tx *gorm.DB) *Store[T] {
	if tx == nil {
		return s
	}
	return &Store[T]{db: tx, fields: s.fields}
}

// DB returns the connection (or transaction) bound to ctx, for typed stores
// that need queries beyond the generic contract.
func (s *Store[T]) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Insert persists record. Unique violations surface as CodeConflict.
func (s *Store[T]) Insert(ctx context.Context, record *T) error {
	if record == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "record is required")
	}
	if err := s.DB(ctx).Create(record).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "record already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert record")
	}
	return nil
}

// UpdateByID applies patch to the row with the given id.
func (s *Store[T]) UpdateByID(ctx context.Context, id string, patch map[string]any) error {
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "id is required")
	}
	if len(patch) == 0 {
		return nil
	}
	res := s.DB(ctx).Model(new(T)).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update record")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "record not found").WithDetails(map[string]any{"id": id})
	}
	return nil
}

// FindByID loads the row with the given id.
func (s *Store[T]) FindByID(ctx context.Context, id string) (*T, error) {
	var record T
	err := s.DB(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "record not found").WithDetails(map[string]any{"id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find record")
	}
	return &record, nil
}

// FindByField returns up to limit rows where field equals value, oldest first.
// A limit of zero or less returns every match.
func (s *Store[T]) FindByField(ctx context.Context, field string, value any, limit int) ([]T, error) {
	if err := s.checkField(field); err != nil {
		return nil, err
	}
	query := s.DB(ctx).Where(fmt.Sprintf("%s = ?", field), value).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find records")
	}
	return rows, nil
}

// CountByField counts rows where field equals value.
func (s *Store[T]) CountByField(ctx context.Context, field string, value any) (int64, error) {
	if err := s.checkField(field); err != nil {
		return 0, err
	}
	var count int64
	if err := s.DB(ctx).Model(new(T)).Where(fmt.Sprintf("%s = ?", field), value).Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count records")
	}
	return count, nil
}

func (s *Store[T]) checkField(field string) error {
	if _, ok := s.fields[field]; !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("field %q is not queryable", field))
	}
	return nil
}
