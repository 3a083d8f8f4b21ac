package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frankenlab/frankend/pkg/types"
)

// BlueprintStore manages saved blueprints and the marketplace view over
// published ones.
type BlueprintStore struct {
	store *Store
}

// NewBlueprintStore creates a blueprint store backed by the given store.
func NewBlueprintStore(store *Store) *BlueprintStore {
	return &BlueprintStore{store: store}
}

// CreateBlueprint inserts a new saved blueprint. The ID is assigned when
// empty.
func (b *BlueprintStore) CreateBlueprint(bp *types.SavedBlueprint) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if bp.ID == "" {
		bp.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if bp.CreatedAt.IsZero() {
		bp.CreatedAt = now
	}
	bp.UpdatedAt = now

	config, compiled, err := marshalBlueprint(bp)
	if err != nil {
		return err
	}

	_, err = b.store.db.Exec(`
		INSERT INTO blueprints (id, owner_id, name, description, configuration,
			compiled, public, clone_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bp.ID, bp.OwnerID, bp.Name, bp.Description, config, compiled,
		bp.Public, bp.CloneCount,
		bp.CreatedAt.Format(time.RFC3339Nano),
		bp.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to create blueprint: %w", err)
	}
	return nil
}

// UpdateBlueprint replaces the mutable fields of a saved blueprint.
func (b *BlueprintStore) UpdateBlueprint(bp *types.SavedBlueprint) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	bp.UpdatedAt = time.Now().UTC()

	config, compiled, err := marshalBlueprint(bp)
	if err != nil {
		return err
	}

	res, err := b.store.db.Exec(`
		UPDATE blueprints
		SET name = ?, description = ?, configuration = ?, compiled = ?, updated_at = ?
		WHERE id = ?`,
		bp.Name, bp.Description, config, compiled,
		bp.UpdatedAt.Format(time.RFC3339Nano), bp.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update blueprint: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalBlueprint(bp *types.SavedBlueprint) (string, sql.NullString, error) {
	config, err := json.Marshal(bp.Configuration)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	var compiled sql.NullString
	if bp.Compiled != nil {
		data, err := json.Marshal(bp.Compiled)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("failed to marshal compiled blueprint: %w", err)
		}
		compiled = sql.NullString{String: string(data), Valid: true}
	}
	return string(config), compiled, nil
}

// GetBlueprint retrieves a saved blueprint by ID.
func (b *BlueprintStore) GetBlueprint(id string) (*types.SavedBlueprint, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()

	row := b.store.db.QueryRow(`
		SELECT id, owner_id, name, description, configuration, compiled,
			public, clone_count, created_at, updated_at
		FROM blueprints WHERE id = ?`, id)
	return scanBlueprint(row)
}

func scanBlueprint(row *sql.Row) (*types.SavedBlueprint, error) {
	var bp types.SavedBlueprint
	var config string
	var compiled sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&bp.ID, &bp.OwnerID, &bp.Name, &bp.Description, &config,
		&compiled, &bp.Public, &bp.CloneCount, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blueprint: %w", err)
	}
	if err := unmarshalBlueprint(&bp, config, compiled); err != nil {
		return nil, err
	}
	bp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	bp.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &bp, nil
}

func unmarshalBlueprint(bp *types.SavedBlueprint, config string, compiled sql.NullString) error {
	if err := json.Unmarshal([]byte(config), &bp.Configuration); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if compiled.Valid {
		bp.Compiled = &types.Blueprint{}
		if err := json.Unmarshal([]byte(compiled.String), bp.Compiled); err != nil {
			return fmt.Errorf("failed to unmarshal compiled blueprint: %w", err)
		}
	}
	return nil
}

// ListBlueprints returns a user's saved blueprints, most recently updated
// first.
func (b *BlueprintStore) ListBlueprints(ownerID string) ([]*types.SavedBlueprint, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()

	rows, err := b.store.db.Query(`
		SELECT id, owner_id, name, description, configuration, compiled,
			public, clone_count, created_at, updated_at
		FROM blueprints WHERE owner_id = ?
		ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blueprints: %w", err)
	}
	defer rows.Close()

	var blueprints []*types.SavedBlueprint
	for rows.Next() {
		var bp types.SavedBlueprint
		var config string
		var compiled sql.NullString
		var createdAt, updatedAt string
		err := rows.Scan(&bp.ID, &bp.OwnerID, &bp.Name, &bp.Description,
			&config, &compiled, &bp.Public, &bp.CloneCount, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blueprint: %w", err)
		}
		if err := unmarshalBlueprint(&bp, config, compiled); err != nil {
			return nil, err
		}
		bp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		bp.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		blueprints = append(blueprints, &bp)
	}
	return blueprints, rows.Err()
}

// DeleteBlueprint removes a saved blueprint.
func (b *BlueprintStore) DeleteBlueprint(id string) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	res, err := b.store.db.Exec(`DELETE FROM blueprints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blueprint: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPublic publishes or unpublishes a blueprint.
func (b *BlueprintStore) SetPublic(id string, public bool) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	res, err := b.store.db.Exec(`
		UPDATE blueprints SET public = ?, updated_at = ? WHERE id = ?`,
		public, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to update blueprint visibility: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementCloneCount bumps the clone counter on a published blueprint.
func (b *BlueprintStore) IncrementCloneCount(id string) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	res, err := b.store.db.Exec(`
		UPDATE blueprints SET clone_count = clone_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment clone count: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMarketplace returns all published blueprints as marketplace listings,
// most recently published first.
func (b *BlueprintStore) ListMarketplace() ([]*types.MarketplaceListing, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()

	rows, err := b.store.db.Query(`
		SELECT b.id, b.name, b.description, u.name, b.clone_count, b.updated_at
		FROM blueprints b
		JOIN users u ON u.id = b.owner_id
		WHERE b.public = 1
		ORDER BY b.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplace: %w", err)
	}
	defer rows.Close()

	var listings []*types.MarketplaceListing
	for rows.Next() {
		var l types.MarketplaceListing
		var publishedAt string
		err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.AuthorName,
			&l.CloneCount, &publishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		l.PublishedAt, _ = time.Parse(time.RFC3339Nano, publishedAt)
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}
