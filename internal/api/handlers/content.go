package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/arexans/lisensi/internal/models"
)

// ContentStore defines the storefront content reads.
type ContentStore interface {
	ListActivePackages(ctx context.Context) ([]*models.Package, error)
	ListActiveAds(ctx context.Context) ([]*models.Ad, error)
	ListActiveBackgrounds(ctx context.Context) ([]*models.Background, error)
	ListActiveSocialLinks(ctx context.Context) ([]*models.SocialLink, error)
	GetSiteSettings(ctx context.Context) (map[string]string, error)
}

// ContentHandler serves the read-only storefront content.
type ContentHandler struct {
	store  ContentStore
	logger zerolog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(store ContentStore, logger zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		store:  store,
		logger: logger.With().Str("component", "content_handler").Logger(),
	}
}

// RegisterRoutes registers content routes on the given router group.
func (h *ContentHandler) RegisterRoutes(r *gin.RouterGroup) {
	content := r.Group("/content")
	{
		content.GET("/packages", h.Packages)
		content.GET("/ads", h.Ads)
		content.GET("/backgrounds", h.Backgrounds)
		content.GET("/social-links", h.SocialLinks)
		content.GET("/settings", h.Settings)
	}
}

// Packages returns all purchasable packages.
// GET /api/v1/content/packages
func (h *ContentHandler) Packages(c *gin.Context) {
	pkgs, err := h.store.ListActivePackages(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list packages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list packages"})
		return
	}
	if pkgs == nil {
		pkgs = []*models.Package{}
	}
	c.JSON(http.StatusOK, gin.H{"data": pkgs})
}

// Ads returns all active promotional slides.
// GET /api/v1/content/ads
func (h *ContentHandler) Ads(c *gin.Context) {
	ads, err := h.store.ListActiveAds(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list ads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list ads"})
		return
	}
	if ads == nil {
		ads = []*models.Ad{}
	}
	c.JSON(http.StatusOK, gin.H{"data": ads})
}

// Backgrounds returns all active storefront backgrounds.
// GET /api/v1/content/backgrounds
func (h *ContentHandler) Backgrounds(c *gin.Context) {
	bgs, err := h.store.ListActiveBackgrounds(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list backgrounds")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list backgrounds"})
		return
	}
	if bgs == nil {
		bgs = []*models.Background{}
	}
	c.JSON(http.StatusOK, gin.H{"data": bgs})
}

// SocialLinks returns all active social links.
// GET /api/v1/content/social-links
func (h *ContentHandler) SocialLinks(c *gin.Context) {
	links, err := h.store.ListActiveSocialLinks(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list social links")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list social links"})
		return
	}
	if links == nil {
		links = []*models.SocialLink{}
	}
	c.JSON(http.StatusOK, gin.H{"data": links})
}

// Settings returns the site settings map.
// GET /api/v1/content/settings
func (h *ContentHandler) Settings(c *gin.Context) {
	settings, err := h.store.GetSiteSettings(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get site settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get site settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}
