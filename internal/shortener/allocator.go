package shortener

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"custom-url-shortener/internal/apperrors"
	"custom-url-shortener/internal/db"
	"custom-url-shortener/internal/logger"
	"custom-url-shortener/internal/metrics"
)

// DefaultMaxAttempts bounds how many candidate codes Allocate tries.
const DefaultMaxAttempts = 5

// customCodePattern restricts user-chosen codes to the generated alphabet.
var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// LinkStore is the persistence the allocator needs.
type LinkStore interface {
	FindShortLinkByCode(ctx context.Context, code string) (*db.ShortLink, error)
	CreateShortLink(ctx context.Context, link *db.ShortLink) error
	CreateCustomLink(ctx context.Context, link *db.CustomLink) error
}

// Allocator hands out unique short codes for new links.
type Allocator struct {
	store       LinkStore
	generator   CodeGenerator
	maxAttempts int
}

// NewAllocator returns an Allocator. maxAttempts <= 0 selects DefaultMaxAttempts.
func NewAllocator(store LinkStore, generator CodeGenerator, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{store: store, generator: generator, maxAttempts: maxAttempts}
}

// Allocate stores a new ShortLink for originalURL under a freshly generated
// code. Each attempt generates a candidate and checks the store for it; the
// first free candidate is written with zero clicks. The existence check is
// only a pre-filter: if the write itself hits the unique index, the attempt
// is spent and the loop continues, and on the last attempt the conflict is
// returned as DuplicateKey. When every candidate collides the result is
// AllocationExhausted. Store failures are returned unchanged.
func (a *Allocator) Allocate(ctx context.Context, originalURL string) (*db.ShortLink, error) {
	originalURL = strings.TrimSpace(originalURL)
	if originalURL == "" {
		metrics.Allocations.WithLabelValues("invalid").Inc()
		return nil, apperrors.InvalidInput("Paste your URL in the input field")
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.generator.Generate()
		if err != nil {
			metrics.Allocations.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("generate short code: %w", err)
		}

		existing, err := a.store.FindShortLinkByCode(ctx, code)
		if err != nil {
			metrics.Allocations.WithLabelValues("error").Inc()
			return nil, err
		}
		if existing != nil {
			metrics.Collisions.Inc()
			logger.Warn().Str("code", code).Int("attempt", attempt).Msg("Short code collision, retrying")
			continue
		}

		link := &db.ShortLink{OriginalURL: originalURL, ShortCode: code, Clicks: 0}
		err = a.store.CreateShortLink(ctx, link)
		if err == nil {
			metrics.Allocations.WithLabelValues("created").Inc()
			logger.Info().Str("code", code).Int("attempt", attempt).Str("url", originalURL).Msg("Allocated short code")
			return link, nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateKey) {
			metrics.Allocations.WithLabelValues("error").Inc()
			return nil, err
		}

		metrics.Collisions.Inc()
		if attempt == a.maxAttempts {
			metrics.Allocations.WithLabelValues("conflict").Inc()
			logger.Warn().Str("code", code).Msg("Short code taken concurrently on final attempt")
			return nil, apperrors.DuplicateKey("Failed to create a unique shortened URL", err)
		}
		logger.Warn().Str("code", code).Int("attempt", attempt).Msg("Short code taken concurrently, retrying")
	}

	metrics.Allocations.WithLabelValues("exhausted").Inc()
	logger.Error().Int("attempts", a.maxAttempts).Str("url", originalURL).Msg("Max attempts reached for short code generation")
	return nil, apperrors.AllocationExhausted("Failed to create a unique shortened URL")
}

// CreateCustomLink stores a link under a code chosen by ownerID. The code is
// not generated, so there is nothing to retry: a taken code is DuplicateKey.
func (a *Allocator) CreateCustomLink(ctx context.Context, ownerID, originalURL, code string) (*db.CustomLink, error) {
	if ownerID == "" {
		return nil, apperrors.Unauthorized("Unauthorized")
	}
	originalURL = strings.TrimSpace(originalURL)
	code = strings.TrimSpace(code)
	if originalURL == "" || code == "" {
		return nil, apperrors.InvalidInput("Original link and custom link are required")
	}
	if !customCodePattern.MatchString(code) {
		return nil, apperrors.InvalidInput("Custom link may only contain letters, digits, '-' and '_' (max 64)")
	}

	link := &db.CustomLink{OriginalURL: originalURL, CustomCode: code, OwnerID: ownerID}
	if err := a.store.CreateCustomLink(ctx, link); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			return nil, apperrors.DuplicateKey("Custom link already taken", err)
		}
		return nil, err
	}
	logger.Info().Str("owner", ownerID).Str("code", code).Msg("Created custom link")
	return link, nil
}
