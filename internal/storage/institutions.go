package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusreach/campaign-studio/internal/audience"
)

// ListInstitutions returns the full institution catalog ordered by name.
// Department/level metadata is stored as JSONB but may historically hold a
// double-encoded string; StringList absorbs both.
func (s *Store) ListInstitutions(ctx context.Context) ([]audience.Institution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, departments::text, levels::text
		FROM institutions ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing institutions: %w", err)
	}
	defer rows.Close()

	institutions := []audience.Institution{}
	for rows.Next() {
		var inst audience.Institution
		var departments, levels []byte
		if err := rows.Scan(&inst.ID, &inst.Name, &departments, &levels); err != nil {
			return nil, fmt.Errorf("scanning institution: %w", err)
		}
		// StringList.UnmarshalJSON never fails; malformed metadata just
		// contributes an empty list.
		_ = json.Unmarshal(departments, &inst.Departments)
		_ = json.Unmarshal(levels, &inst.Levels)
		institutions = append(institutions, inst)
	}
	return institutions, rows.Err()
}

// UpsertInstitution inserts or refreshes a catalog entry.
func (s *Store) UpsertInstitution(ctx context.Context, inst audience.Institution) error {
	departments, err := json.Marshal([]string(inst.Departments))
	if err != nil {
		return fmt.Errorf("encoding departments: %w", err)
	}
	levels, err := json.Marshal([]string(inst.Levels))
	if err != nil {
		return fmt.Errorf("encoding levels: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO institutions (id, name, departments, levels)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			departments = EXCLUDED.departments,
			levels = EXCLUDED.levels
	`, inst.ID, inst.Name, string(departments), string(levels))
	if err != nil {
		return fmt.Errorf("upserting institution %s: %w", inst.ID, err)
	}
	return nil
}
