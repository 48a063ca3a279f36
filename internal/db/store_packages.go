package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arexans/lisensi/internal/models"
)

const packageColumns = `
	id, name, display_name, description, price_per_day, features,
	is_active, sort_order, created_at, updated_at`

func scanPackage(row pgx.Row) (*models.Package, error) {
	var pkg models.Package
	err := row.Scan(
		&pkg.ID, &pkg.Name, &pkg.DisplayName, &pkg.Description, &pkg.PricePerDay,
		&pkg.Features, &pkg.IsActive, &pkg.SortOrder, &pkg.CreatedAt, &pkg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan package: %w", err)
	}
	return &pkg, nil
}

// GetPackageByName returns the package with the given tier name.
func (db *DB) GetPackageByName(ctx context.Context, name string) (*models.Package, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT`+packageColumns+`
		FROM packages
		WHERE name = $1
	`, name)
	return scanPackage(row)
}

// ListActivePackages returns all active packages in display order.
func (db *DB) ListActivePackages(ctx context.Context) ([]*models.Package, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT`+packageColumns+`
		FROM packages
		WHERE is_active = true
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var pkgs []*models.Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}
	return pkgs, nil
}
