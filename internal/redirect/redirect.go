package redirect

import (
	"context"

	"custom-url-shortener/internal/apperrors"
	"custom-url-shortener/internal/db"
	"custom-url-shortener/internal/logger"
	"custom-url-shortener/internal/metrics"
)

// LinkStore is the persistence the resolver needs. The owned path goes
// through one atomic method; there is no separate read and write.
type LinkStore interface {
	FindShortLinkByCode(ctx context.Context, code string) (*db.ShortLink, error)
	IncrementCustomLinkClicks(ctx context.Context, ownerID, code string, delta int64) (*db.CustomLink, error)
}

// Cache is an optional read-through cache for the global namespace.
type Cache interface {
	Get(ctx context.Context, code string) (string, bool, error)
	Set(ctx context.Context, code, originalURL string) error
}

// Resolver turns codes back into destination URLs.
type Resolver struct {
	store LinkStore
	cache Cache
}

// NewResolver returns a Resolver. cache may be nil.
func NewResolver(store LinkStore, cache Cache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve returns the original URL of a global ShortLink. It does not
// count the visit. Cache errors are logged and the store is used instead.
func (r *Resolver) Resolve(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", apperrors.InvalidInput("Short code parameter is missing")
	}

	if r.cache != nil {
		url, ok, err := r.cache.Get(ctx, code)
		if err != nil {
			logger.Warn().Err(err).Str("code", code).Msg("Resolve cache read failed")
		} else if ok {
			metrics.Redirects.WithLabelValues("global", "cache_hit").Inc()
			return url, nil
		}
	}

	link, err := r.store.FindShortLinkByCode(ctx, code)
	if err != nil {
		metrics.Redirects.WithLabelValues("global", "error").Inc()
		return "", err
	}
	if link == nil {
		metrics.Redirects.WithLabelValues("global", "not_found").Inc()
		return "", apperrors.NotFound("Short code not found")
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, code, link.OriginalURL); err != nil {
			logger.Warn().Err(err).Str("code", code).Msg("Resolve cache write failed")
		}
	}
	metrics.Redirects.WithLabelValues("global", "found").Inc()
	return link.OriginalURL, nil
}

// ResolveAndCount finds the CustomLink owned by ownerID under code, adds
// one click and returns the updated record, all in one store operation.
// A code owned by someone else is reported exactly like a missing code.
func (r *Resolver) ResolveAndCount(ctx context.Context, ownerID, code string) (*db.CustomLink, error) {
	if ownerID == "" {
		return nil, apperrors.Unauthorized("Unauthorized")
	}
	if code == "" {
		return nil, apperrors.InvalidInput("ID is required")
	}

	link, err := r.store.IncrementCustomLinkClicks(ctx, ownerID, code, 1)
	if err != nil {
		metrics.Redirects.WithLabelValues("owned", "error").Inc()
		return nil, err
	}
	if link == nil {
		metrics.Redirects.WithLabelValues("owned", "not_found").Inc()
		return nil, apperrors.NotFound("Link not found")
	}

	metrics.Redirects.WithLabelValues("owned", "found").Inc()
	logger.Debug().Str("owner", ownerID).Str("code", code).Int64("clicks", link.Clicks).Msg("Counted click")
	return link, nil
}
