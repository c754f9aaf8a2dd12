package db

import (
	"context"
	"errors"
	"strings"

	"custom-url-shortener/internal/apperrors"

	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Store is the Link Store: all persistence for links and accounts.
// Mutations are single self-contained statements or one short transaction;
// uniqueness is left to the database's unique indexes.
type Store struct {
	db *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DB().PingContext(ctx); err != nil {
		return apperrors.StoreUnavailable("Database unreachable", err)
	}
	return nil
}

// FindShortLinkByCode returns the ShortLink with the exact code, or nil if none exists.
func (s *Store) FindShortLinkByCode(ctx context.Context, code string) (*ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var link ShortLink
	if err := s.db.Where("short_code = ?", code).First(&link).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, classify("Database error while looking up short code", err)
	}
	return &link, nil
}

// CreateShortLink inserts link. A code that is already taken fails with DuplicateKey.
func (s *Store) CreateShortLink(ctx context.Context, link *ShortLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Create(link).Error; err != nil {
		return classify("Failed to save short link", err)
	}
	return nil
}

// CreateCustomLink inserts link. A code that is already taken fails with DuplicateKey.
func (s *Store) CreateCustomLink(ctx context.Context, link *CustomLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Create(link).Error; err != nil {
		return classify("Failed to save custom link", err)
	}
	return nil
}

// IncrementCustomLinkClicks atomically adds delta to the clicks of the
// CustomLink identified by ownerID and code, and returns the updated record.
// It returns nil when no link matches both keys; nothing is modified then.
//
// The UPDATE and the read-back share one transaction, so the returned
// count is the one written by this call even under concurrent increments.
func (s *Store) IncrementCustomLinkClicks(ctx context.Context, ownerID, code string, delta int64) (*CustomLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var link CustomLink
	found := true
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&CustomLink{}).
			Where("owner_id = ? AND custom_code = ?", ownerID, code).
			Update("clicks", gorm.Expr("clicks + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			found = false
			return nil
		}
		return tx.Where("owner_id = ? AND custom_code = ?", ownerID, code).First(&link).Error
	})
	if err != nil {
		return nil, classify("Database error while counting click", err)
	}
	if !found {
		return nil, nil
	}
	return &link, nil
}

// ListCustomLinks returns the owner's links, newest first.
func (s *Store) ListCustomLinks(ctx context.Context, ownerID string) ([]CustomLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	links := []CustomLink{}
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at desc").Order("id desc").Find(&links).Error; err != nil {
		return nil, classify("Failed to fetch custom links", err)
	}
	return links, nil
}

// CountCustomLinks returns how many links the owner has.
func (s *Store) CountCustomLinks(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.Model(&CustomLink{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, classify("Failed to count custom links", err)
	}
	return count, nil
}

// SumCustomLinkClicks returns the clicks summed over the owner's links, 0 when there are none.
func (s *Store) SumCustomLinkClicks(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var total int64
	row := s.db.Model(&CustomLink{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(clicks), 0)").
		Row()
	if err := row.Scan(&total); err != nil {
		return 0, classify("Failed to sum clicks", err)
	}
	return total, nil
}

// NewestCustomLink returns the owner's most recently created link, or nil when there are none.
func (s *Store) NewestCustomLink(ctx context.Context, ownerID string) (*CustomLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var link CustomLink
	err := s.db.Where("owner_id = ?", ownerID).Order("created_at desc").Order("id desc").First(&link).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, classify("Failed to fetch last creation", err)
	}
	return &link, nil
}

// CreateAccount inserts account. A taken email fails with DuplicateKey.
func (s *Store) CreateAccount(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Create(account).Error; err != nil {
		return classify("Failed to register user", err)
	}
	return nil
}

// FindAccountByEmail returns the account with email, or nil.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var account Account
	if err := s.db.Where("email = ?", email).First(&account).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, classify("Failed to look up user", err)
	}
	return &account, nil
}

// classify maps driver errors onto DuplicateKey or StoreUnavailable.
func classify(msg string, err error) error {
	if isUniqueViolation(err) {
		return apperrors.DuplicateKey("Already exists", err)
	}
	return apperrors.StoreUnavailable(msg, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	// gorm v1 sometimes flattens driver errors into strings.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
