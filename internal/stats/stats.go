package stats

import (
	"context"
	"fmt"
	"time"

	"custom-url-shortener/internal/apperrors"
	"custom-url-shortener/internal/db"
)

// LinkStore is the read-only persistence the aggregates are computed from.
type LinkStore interface {
	CountCustomLinks(ctx context.Context, ownerID string) (int64, error)
	SumCustomLinkClicks(ctx context.Context, ownerID string) (int64, error)
	NewestCustomLink(ctx context.Context, ownerID string) (*db.CustomLink, error)
	ListCustomLinks(ctx context.Context, ownerID string) ([]db.CustomLink, error)
}

// Service answers per-account questions about custom links. Nothing here writes.
type Service struct {
	store LinkStore
	now   func() time.Time
}

// NewService returns a Service. now defaults to time.Now when nil.
func NewService(store LinkStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

func (s *Service) ListLinks(ctx context.Context, ownerID string) ([]db.CustomLink, error) {
	if ownerID == "" {
		return nil, apperrors.Unauthorized("Unauthorized")
	}
	return s.store.ListCustomLinks(ctx, ownerID)
}

func (s *Service) TotalLinks(ctx context.Context, ownerID string) (int64, error) {
	if ownerID == "" {
		return 0, apperrors.Unauthorized("Unauthorized")
	}
	return s.store.CountCustomLinks(ctx, ownerID)
}

func (s *Service) TotalClicks(ctx context.Context, ownerID string) (int64, error) {
	if ownerID == "" {
		return 0, apperrors.Unauthorized("Unauthorized")
	}
	return s.store.SumCustomLinkClicks(ctx, ownerID)
}

// AverageClicks is total clicks over total links, and 0 for an account without links.
func (s *Service) AverageClicks(ctx context.Context, ownerID string) (float64, error) {
	if ownerID == "" {
		return 0, apperrors.Unauthorized("Unauthorized")
	}
	links, err := s.store.CountCustomLinks(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if links == 0 {
		return 0, nil
	}
	clicks, err := s.store.SumCustomLinkClicks(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return float64(clicks) / float64(links), nil
}

// LastCreated renders how long ago the newest link was created.
// The bool is false when the account has no links yet.
func (s *Service) LastCreated(ctx context.Context, ownerID string) (string, bool, error) {
	if ownerID == "" {
		return "", false, apperrors.Unauthorized("Unauthorized")
	}
	newest, err := s.store.NewestCustomLink(ctx, ownerID)
	if err != nil {
		return "", false, err
	}
	if newest == nil {
		return "", false, nil
	}
	return TimeAgo(newest.CreatedAt, s.now()), true, nil
}

// TimeAgo renders the distance from then to now as a coarse bucket.
// Every unit is an integer floor of the previous one; a month is 30 days.
func TimeAgo(then, now time.Time) string {
	secs := int64(now.Sub(then) / time.Second)
	if secs < 60 {
		return "Just now"
	}
	mins := secs / 60
	if mins < 60 {
		return ago(mins, "min")
	}
	hours := mins / 60
	if hours < 24 {
		return ago(hours, "hour")
	}
	days := hours / 24
	if days < 30 {
		return ago(days, "day")
	}
	months := days / 30
	if months < 12 {
		return ago(months, "month")
	}
	return ago(months/12, "year")
}

func ago(n int64, unit string) string {
	if n > 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
