package api

import (
	"context"
	"net/http"

	"custom-url-shortener/internal/accounts"
	"custom-url-shortener/internal/apperrors"
	"custom-url-shortener/internal/auth"
	"custom-url-shortener/internal/logger"
	"custom-url-shortener/internal/redirect"
	"custom-url-shortener/internal/shortener"
	"custom-url-shortener/internal/stats"

	"github.com/gin-gonic/gin"
)

// ShortenRequest is the body of POST /api/links.
type ShortenRequest struct {
	OriginalURL string `json:"originalUrl"`
}

// CustomLinkRequest is the body of POST /api/custom-links/add.
type CustomLinkRequest struct {
	OriginalLink string `json:"originalLink"`
	CustomLink   string `json:"customLink"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the services the HTTP routes delegate to.
type Handler struct {
	store     Pinger
	allocator *shortener.Allocator
	resolver  *redirect.Resolver
	stats     *stats.Service
	accounts  *accounts.Service
}

func NewHandler(store Pinger, allocator *shortener.Allocator, resolver *redirect.Resolver, stats *stats.Service, accounts *accounts.Service) *Handler {
	return &Handler{store: store, allocator: allocator, resolver: resolver, stats: stats, accounts: accounts}
}

// HealthCheck reports UP while the store answers a ping.
func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		logger.Warn().Err(err).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) Register(c *gin.Context) {
	var req accounts.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": account})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Shorten allocates a generated code for an anonymous link.
func (h *Handler) Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	link, err := h.allocator.Allocate(c.Request.Context(), req.OriginalURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"newLink": link})
}

// Redirect sends the visitor to the destination of a global short code.
func (h *Handler) Redirect(c *gin.Context) {
	originalURL, err := h.resolver.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, originalURL)
}

func (h *Handler) AddCustomLink(c *gin.Context) {
	var req CustomLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	link, err := h.allocator.CreateCustomLink(c.Request.Context(), auth.OwnerID(c), req.OriginalLink, req.CustomLink)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Custom link created successfully", "customLink": link.CustomCode})
}

func (h *Handler) ListCustomLinks(c *gin.Context) {
	links, err := h.stats.ListLinks(c.Request.Context(), auth.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Custom links fetched successfully", "customLinks": links})
}

// VisitCustomLink counts one click on an owned link and returns it.
func (h *Handler) VisitCustomLink(c *gin.Context) {
	link, err := h.resolver.ResolveAndCount(c.Request.Context(), auth.OwnerID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *Handler) CountLinks(c *gin.Context) {
	count, err := h.stats.TotalLinks(c.Request.Context(), auth.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) ClickCount(c *gin.Context) {
	total, err := h.stats.TotalClicks(c.Request.Context(), auth.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalClicks": total})
}

func (h *Handler) AverageClicks(c *gin.Context) {
	avg, err := h.stats.AverageClicks(c.Request.Context(), auth.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"averageClicks": avg})
}

func (h *Handler) LastCreation(c *gin.Context) {
	last, ok, err := h.stats.LastCreated(c.Request.Context(), auth.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": "No links created yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lastCreated": last})
}

// respondError writes err as {"error": message} with the status of its kind.
// Errors without a kind are logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	status := statusOf(apperrors.KindOf(err))
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(status, gin.H{"error": apperrors.MessageOf(err)})
}

func statusOf(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidInput:
		return http.StatusBadRequest
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindDuplicateKey:
		return http.StatusConflict
	case apperrors.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
