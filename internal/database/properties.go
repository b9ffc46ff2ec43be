package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"rentero/internal/models"
)

// CreateProperty inserts a property and refreshes the cache.
func (db *DB) CreateProperty(ctx context.Context, p *models.Property) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO properties (name, address, owner) VALUES (?, ?, ?)`,
		p.Name, p.Address, p.Owner,
	)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	return db.ReloadProperties()
}

// GetProperty returns a property by id, served from the cache.
func (db *DB) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	db.mu.RLock()
	p, ok := db.propCache[id]
	db.mu.RUnlock()
	if ok {
		return &p, nil
	}

	var prop models.Property
	err := db.QueryRowContext(ctx,
		`SELECT id, name, address, owner FROM properties WHERE id = ?`, id,
	).Scan(&prop.ID, &prop.Name, &prop.Address, &prop.Owner)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get property %d: %w", id, err)
	}
	return &prop, nil
}

// ListProperties returns the cached portfolio sorted by id.
func (db *DB) ListProperties(ctx context.Context) ([]models.Property, error) {
	db.mu.RLock()
	cached := len(db.propCache) > 0
	db.mu.RUnlock()

	if !cached {
		if err := db.ReloadProperties(); err != nil {
			return nil, err
		}
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]models.Property, 0, len(db.propCache))
	for _, p := range db.propCache {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Owners returns the distinct owner names in the portfolio, sorted.
func (db *DB) Owners(ctx context.Context) ([]string, error) {
	props, err := db.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var owners []string
	for _, p := range props {
		if p.Owner != "" && !seen[p.Owner] {
			seen[p.Owner] = true
			owners = append(owners, p.Owner)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

// ReloadProperties replaces the property cache from disk. This is the
// explicit reload the UI triggers after external edits; nothing reloads
// implicitly.
func (db *DB) ReloadProperties() error {
	rows, err := db.Query(`SELECT id, name, address, owner FROM properties ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}
	defer rows.Close()

	cache := make(map[int64]models.Property)
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Owner); err != nil {
			return err
		}
		cache[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	db.propCache = cache
	db.cacheTime = time.Now()
	db.mu.Unlock()
	return nil
}
