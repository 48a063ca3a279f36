package db

import (
	"context"
	"fmt"

	"github.com/arexans/lisensi/internal/models"
)

// Storefront content methods. All reads are limited to active rows in
// display order; editing happens out of band.

// ListActiveAds returns all active promotional slides.
func (db *DB) ListActiveAds(ctx context.Context) ([]*models.Ad, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, media_type, media_url, link, is_active, sort_order, created_at
		FROM ads
		WHERE is_active = true
		ORDER BY sort_order, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	defer rows.Close()

	var ads []*models.Ad
	for rows.Next() {
		var ad models.Ad
		err := rows.Scan(&ad.ID, &ad.Title, &ad.MediaType, &ad.MediaURL, &ad.Link, &ad.IsActive, &ad.SortOrder, &ad.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ad: %w", err)
		}
		ads = append(ads, &ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ads: %w", err)
	}
	return ads, nil
}

// ListActiveBackgrounds returns all active storefront backgrounds.
func (db *DB) ListActiveBackgrounds(ctx context.Context) ([]*models.Background, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, background_type, background_url, is_muted, is_active,
		       sort_order, created_at, updated_at
		FROM backgrounds
		WHERE is_active = true
		ORDER BY sort_order, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list backgrounds: %w", err)
	}
	defer rows.Close()

	var bgs []*models.Background
	for rows.Next() {
		var bg models.Background
		err := rows.Scan(&bg.ID, &bg.Title, &bg.BackgroundType, &bg.BackgroundURL, &bg.IsMuted,
			&bg.IsActive, &bg.SortOrder, &bg.CreatedAt, &bg.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan background: %w", err)
		}
		bgs = append(bgs, &bg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backgrounds: %w", err)
	}
	return bgs, nil
}

// ListActiveSocialLinks returns all active social links.
func (db *DB) ListActiveSocialLinks(ctx context.Context) ([]*models.SocialLink, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, label, icon_type, url, link_location, is_active,
		       sort_order, created_at, updated_at
		FROM social_links
		WHERE is_active = true
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list social links: %w", err)
	}
	defer rows.Close()

	var links []*models.SocialLink
	for rows.Next() {
		var link models.SocialLink
		err := rows.Scan(&link.ID, &link.Name, &link.Label, &link.IconType, &link.URL,
			&link.LinkLocation, &link.IsActive, &link.SortOrder, &link.CreatedAt, &link.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan social link: %w", err)
		}
		links = append(links, &link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate social links: %w", err)
	}
	return links, nil
}

// GetSiteSettings returns all site settings as a key/value map.
func (db *DB) GetSiteSettings(ctx context.Context) (map[string]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT key, value
		FROM site_settings
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("get site settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan site setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}
