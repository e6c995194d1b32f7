package database

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateOrder is returned when an order would violate the live-order unique index.
	ErrDuplicateOrder = errors.New("a live order already exists for this subscription, day and meal")
)

// Store implements the repositories of the order engine over gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection, mostly for tests and health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// errorsLikeUnique catches unique violations from drivers that do not translate errors.
func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique") || strings.Contains(s, "duplicate key")
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
