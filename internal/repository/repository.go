package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

// PolicyRepository reads and writes the policy preset catalog.
type PolicyRepository interface {
	List(ctx context.Context) ([]models.PolicyPreset, error)
	GetByName(ctx context.Context, name string) (*models.PolicyPreset, error)
	Upsert(ctx context.Context, preset *models.PolicyPreset) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) PolicyRepository {
	return &repository{db: db}
}

type entityRow struct {
	PresetName string `db:"preset_name"`
	models.PresetEntity
}

type exclusionRow struct {
	PresetName string `db:"preset_name"`
	Term       string `db:"term"`
}

func (r *repository) List(ctx context.Context) ([]models.PolicyPreset, error) {
	var presets []models.PolicyPreset
	query := `
		SELECT name, description, replacement, default_floor, language, updated_at
		FROM policy_presets
		ORDER BY name
	`
	if err := r.db.SelectContext(ctx, &presets, query); err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}

	var entities []entityRow
	if err := r.db.SelectContext(ctx, &entities, `
		SELECT preset_name, entity_type, min_score, replacement
		FROM policy_entities
		ORDER BY preset_name, position
	`); err != nil {
		return nil, fmt.Errorf("listing preset entities: %w", err)
	}

	var exclusions []exclusionRow
	if err := r.db.SelectContext(ctx, &exclusions, `
		SELECT preset_name, term
		FROM policy_exclusions
		ORDER BY preset_name, term
	`); err != nil {
		return nil, fmt.Errorf("listing preset exclusions: %w", err)
	}

	index := make(map[string]int, len(presets))
	for i := range presets {
		index[presets[i].Name] = i
		presets[i].Entities = []models.PresetEntity{}
		presets[i].Exclusions = []string{}
	}
	for _, e := range entities {
		if i, ok := index[e.PresetName]; ok {
			presets[i].Entities = append(presets[i].Entities, e.PresetEntity)
		}
	}
	for _, e := range exclusions {
		if i, ok := index[e.PresetName]; ok {
			presets[i].Exclusions = append(presets[i].Exclusions, e.Term)
		}
	}

	return presets, nil
}

// GetByName returns nil, nil when no preset has that name.
func (r *repository) GetByName(ctx context.Context, name string) (*models.PolicyPreset, error) {
	var preset models.PolicyPreset

	query := `
		SELECT name, description, replacement, default_floor, language, updated_at
		FROM policy_presets
		WHERE name = ?
	`
	err := r.db.GetContext(ctx, &preset, query, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting preset %q: %w", name, err)
	}

	preset.Entities = []models.PresetEntity{}
	if err := r.db.SelectContext(ctx, &preset.Entities, `
		SELECT entity_type, min_score, replacement
		FROM policy_entities
		WHERE preset_name = ?
		ORDER BY position
	`, name); err != nil {
		return nil, fmt.Errorf("getting entities of preset %q: %w", name, err)
	}

	preset.Exclusions = []string{}
	if err := r.db.SelectContext(ctx, &preset.Exclusions, `
		SELECT term FROM policy_exclusions WHERE preset_name = ? ORDER BY term
	`, name); err != nil {
		return nil, fmt.Errorf("getting exclusions of preset %q: %w", name, err)
	}

	return &preset, nil
}

// Upsert replaces the preset and its entity and exclusion rows atomically.
func (r *repository) Upsert(ctx context.Context, preset *models.PolicyPreset) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	preset.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO policy_presets (name, description, replacement, default_floor, language, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			replacement = excluded.replacement,
			default_floor = excluded.default_floor,
			language = excluded.language,
			updated_at = excluded.updated_at
	`,
		preset.Name,
		preset.Description,
		preset.Replacement,
		preset.DefaultFloor,
		preset.Language,
		preset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting preset %q: %w", preset.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM policy_entities WHERE preset_name = ?`, preset.Name); err != nil {
		return fmt.Errorf("clearing entities of preset %q: %w", preset.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM policy_exclusions WHERE preset_name = ?`, preset.Name); err != nil {
		return fmt.Errorf("clearing exclusions of preset %q: %w", preset.Name, err)
	}

	for i, e := range preset.Entities {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO policy_entities (preset_name, entity_type, min_score, replacement, position)
			VALUES (?, ?, ?, ?, ?)
		`, preset.Name, string(e.EntityType), e.MinScore, e.Replacement, i)
		if err != nil {
			return fmt.Errorf("inserting entity %s of preset %q: %w", e.EntityType, preset.Name, err)
		}
	}

	for term := range models.NewExclusionSet(preset.Exclusions...) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO policy_exclusions (preset_name, term) VALUES (?, ?)
		`, preset.Name, term)
		if err != nil {
			return fmt.Errorf("inserting exclusion of preset %q: %w", preset.Name, err)
		}
	}

	return tx.Commit()
}
