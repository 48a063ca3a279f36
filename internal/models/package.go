package models

import (
	"time"

	"github.com/google/uuid"
)

// Package represents a purchasable license tier with a per-day price.
type Package struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	PricePerDay int64     `json:"price_per_day"`
	Features    []string  `json:"features,omitempty"`
	IsActive    bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPackage creates an active Package with the given tier name and price.
func NewPackage(name, displayName string, pricePerDay int64) *Package {
	now := time.Now()
	return &Package{
		ID:          uuid.New(),
		Name:        name,
		DisplayName: displayName,
		PricePerDay: pricePerDay,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
