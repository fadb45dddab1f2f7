package gdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/footprint-gdb/internal/spatialref"
)

// FeatureDataset is a named group of feature classes sharing one spatial
// reference.
type FeatureDataset struct {
	Name             string                      `yaml:"name"`
	SRSID            int32                       `yaml:"srs_id"`
	SpatialReference spatialref.SpatialReference `yaml:"-"`
	CreatedAt        time.Time                   `yaml:"created_at"`
}

// CreateFeatureDataset creates a feature dataset named name using sr. The
// name must already be valid (see ValidateName) and unused by any dataset or
// feature class.
func (g *Geodatabase) CreateFeatureDataset(ctx context.Context, name string, sr spatialref.SpatialReference) (*FeatureDataset, error) {
	if name == "" || ValidateName(name) != name {
		return nil, eris.Wrapf(ErrInvalidName, "gdb: feature dataset name %q", name)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gdb: begin create dataset")
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := nameTaken(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, eris.Wrapf(ErrAlreadyExists, "gdb: feature dataset %s", name)
	}

	srsID, err := ensureSRS(ctx, tx, sr)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gdb_feature_datasets (name, srs_id, created_at) VALUES (?, ?, ?)`,
		name, srsID, now,
	); err != nil {
		return nil, eris.Wrapf(err, "gdb: insert feature dataset %s", name)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrapf(err, "gdb: commit feature dataset %s", name)
	}

	zap.L().Info("feature dataset created",
		zap.String("component", "gdb"),
		zap.String("dataset", name),
		zap.String("spatial_reference", sr.String()),
		zap.Int32("srs_id", srsID),
	)

	return &FeatureDataset{Name: name, SRSID: srsID, SpatialReference: sr, CreatedAt: now}, nil
}

// FeatureDataset returns the dataset with the given name, ignoring case.
func (g *Geodatabase) FeatureDataset(ctx context.Context, name string) (*FeatureDataset, error) {
	return featureDataset(ctx, g.db, name)
}

func featureDataset(ctx context.Context, q querier, name string) (*FeatureDataset, error) {
	var ds FeatureDataset
	err := q.QueryRowContext(ctx,
		`SELECT name, srs_id, created_at FROM gdb_feature_datasets WHERE name = ? COLLATE NOCASE`,
		name,
	).Scan(&ds.Name, &ds.SRSID, &ds.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "gdb: feature dataset %s", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "gdb: load feature dataset %s", name)
	}

	ds.SpatialReference, err = spatialReference(ctx, q, ds.SRSID)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// Datasets returns every feature dataset ordered by name.
func (g *Geodatabase) Datasets(ctx context.Context) ([]FeatureDataset, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT name FROM gdb_feature_datasets ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "gdb: query feature datasets")
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "gdb: scan feature dataset")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "gdb: iterate feature datasets")
	}
	rows.Close()

	out := make([]FeatureDataset, 0, len(names))
	for _, name := range names {
		ds, err := g.FeatureDataset(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *ds)
	}
	return out, nil
}
