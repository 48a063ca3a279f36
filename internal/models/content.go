package models

import (
	"time"

	"github.com/google/uuid"
)

// Ad is a promotional slide shown on the storefront.
type Ad struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	MediaType string    `json:"media_type"`
	MediaURL  string    `json:"media_url"`
	Link      *string   `json:"link,omitempty"`
	IsActive  bool      `json:"is_active"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// Background is a storefront background image or video.
type Background struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	BackgroundType string    `json:"background_type"`
	BackgroundURL  string    `json:"background_url"`
	IsMuted        bool      `json:"is_muted"`
	IsActive       bool      `json:"is_active"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SocialLink is a contact or community link shown on the storefront.
type SocialLink struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Label        string    `json:"label"`
	IconType     string    `json:"icon_type"`
	URL          string    `json:"url"`
	LinkLocation string    `json:"link_location"`
	IsActive     bool      `json:"is_active"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SiteSetting is a single key/value site configuration entry.
type SiteSetting struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
