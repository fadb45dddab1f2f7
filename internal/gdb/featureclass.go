package gdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/footprint-gdb/internal/shapefile"
	"github.com/sells-group/footprint-gdb/internal/spatialref"
)

// FeatureClass describes one imported feature class.
type FeatureClass struct {
	Name         string    `yaml:"name"`
	Dataset      string    `yaml:"dataset,omitempty"`
	GeometryType string    `yaml:"geometry_type"`
	SRSID        int32     `yaml:"srs_id"`
	FeatureCount int       `yaml:"feature_count"`
	Source       string    `yaml:"source"`
	RunID        string    `yaml:"run_id"`
	ImportedAt   time.Time `yaml:"imported_at"`
}

// Run records one batch conversion into a destination.
type Run struct {
	ID          string
	Destination string
	StartedAt   time.Time
}

// BeginRun records the start of a conversion batch into destination.
func (g *Geodatabase) BeginRun(ctx context.Context, destination string) (*Run, error) {
	run := &Run{
		ID:          uuid.New().String(),
		Destination: destination,
		StartedAt:   time.Now().UTC(),
	}
	if _, err := g.db.ExecContext(ctx,
		`INSERT INTO gdb_import_runs (id, destination, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Destination, run.StartedAt,
	); err != nil {
		return nil, eris.Wrap(err, "gdb: insert import run")
	}
	return run, nil
}

// FinishRun marks a run complete or failed and stores how many feature
// classes it produced.
func (g *Geodatabase) FinishRun(ctx context.Context, run *Run, imported int, runErr error) error {
	status := "complete"
	if runErr != nil {
		status = "failed"
	}
	res, err := g.db.ExecContext(ctx,
		`UPDATE gdb_import_runs SET status = ?, feature_classes = ?, finished_at = ? WHERE id = ?`,
		status, imported, time.Now().UTC(), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "gdb: finish import run %s", run.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return eris.Wrapf(ErrNotFound, "gdb: import run %s", run.ID)
	}
	return nil
}

// ImportShapefile copies the shapefile at src into a new feature class. An
// empty dataset places it at the geodatabase root. The feature class name is
// the validated file name, suffixed _1, _2, ... when already in use.
func (g *Geodatabase) ImportShapefile(ctx context.Context, run *Run, src, dataset string) (*FeatureClass, error) {
	log := zap.L().With(
		zap.String("component", "gdb"),
		zap.String("source", src),
		zap.String("dataset", dataset),
	)

	r, err := shapefile.Open(src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gdb: begin import")
	}
	defer func() { _ = tx.Rollback() }()

	own, hasOwn := readOwnSRS(r, log)
	datasetName := ""
	srsID := int32(UndefinedCartesian)
	if dataset != "" {
		ds, err := featureDataset(ctx, tx, dataset)
		if err != nil {
			return nil, err
		}
		datasetName = ds.Name
		srsID = ds.SRSID
		if hasOwn && !own.Equal(ds.SpatialReference) {
			log.Warn("shapefile spatial reference differs from feature dataset; importing without reprojection",
				zap.String("shapefile_srs", own.String()),
				zap.String("dataset_srs", ds.SpatialReference.String()),
			)
		}
	} else if hasOwn {
		srsID, err = ensureSRS(ctx, tx, own)
		if err != nil {
			return nil, err
		}
	}

	name, err := uniqueName(ctx, tx, ValidateName(r.Name()))
	if err != nil {
		return nil, err
	}
	if name != r.Name() {
		log.Warn("feature class renamed", zap.String("from", r.Name()), zap.String("to", name))
	}

	fields := r.Fields()
	fieldNames := make([]string, len(fields))
	for i, f := range fields {
		fieldNames[i] = f.Name
	}
	columns := columnNames(fieldNames)

	if err := createFeatureTable(ctx, tx, name, r.GeometryType(), fields, columns); err != nil {
		return nil, err
	}

	bounds := boundsOrNil(r.Bounds())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gpkg_contents (table_name, data_type, identifier, description, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		name, name, src, bounds[0], bounds[1], bounds[2], bounds[3], srsID,
	); err != nil {
		return nil, eris.Wrapf(err, "gdb: register contents %s", name)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m)
		VALUES (?, 'geom', ?, ?, 0, 0)`,
		name, r.GeometryType(), srsID,
	); err != nil {
		return nil, eris.Wrapf(err, "gdb: register geometry column %s", name)
	}

	count, err := insertFeatures(ctx, tx, r, name, columns, srsID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var datasetArg any
	if datasetName != "" {
		datasetArg = datasetName
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gdb_feature_classes (table_name, dataset, source_path, feature_count, run_id, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		name, datasetArg, src, count, run.ID, now,
	); err != nil {
		return nil, eris.Wrapf(err, "gdb: register feature class %s", name)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrapf(err, "gdb: commit feature class %s", name)
	}

	log.Info("feature class imported", zap.String("feature_class", name), zap.Int("features", count))

	return &FeatureClass{
		Name:         name,
		Dataset:      datasetName,
		GeometryType: r.GeometryType(),
		SRSID:        srsID,
		FeatureCount: count,
		Source:       src,
		RunID:        run.ID,
		ImportedAt:   now,
	}, nil
}

// readOwnSRS reads the shapefile's .prj sidecar. Unreadable definitions
// are logged and treated as absent.
func readOwnSRS(r *shapefile.Reader, log *zap.Logger) (spatialref.SpatialReference, bool) {
	prj := r.ProjectionPath()
	if prj == "" {
		return spatialref.SpatialReference{}, false
	}
	sr, err := spatialref.FromFile(prj)
	if err != nil {
		log.Warn("ignoring unreadable .prj", zap.String("prj", prj), zap.Error(err))
		return spatialref.SpatialReference{}, false
	}
	return sr, true
}

func createFeatureTable(ctx context.Context, q querier, name, geomType string, fields []shapefile.Field, columns []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n\tfid INTEGER PRIMARY KEY AUTOINCREMENT,\n\tgeom %s", quoteIdent(name), geomType)
	for i, f := range fields {
		fmt.Fprintf(&b, ",\n\t%s %s", quoteIdent(columns[i]), f.Kind)
	}
	b.WriteString("\n)")

	if _, err := q.ExecContext(ctx, b.String()); err != nil {
		return eris.Wrapf(err, "gdb: create feature table %s", name)
	}
	return nil
}

func insertFeatures(ctx context.Context, tx *sql.Tx, r *shapefile.Reader, name string, columns []string, srsID int32) (int, error) {
	cols := make([]string, 0, len(columns)+1)
	cols = append(cols, "geom")
	for _, c := range columns {
		cols = append(cols, quoteIdent(c))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name), strings.Join(cols, ", "), placeholders,
	))
	if err != nil {
		return 0, eris.Wrapf(err, "gdb: prepare insert into %s", name)
	}
	defer func() { _ = stmt.Close() }()

	var count int
	err = r.Each(ctx, func(f shapefile.Feature) error {
		args := make([]any, 0, len(cols))

		blob, err := EncodeGeometry(f.Geometry, srsID)
		if err != nil {
			return eris.Wrapf(err, "gdb: record %d", f.Index)
		}
		if blob == nil {
			args = append(args, nil)
		} else {
			args = append(args, blob)
		}
		args = append(args, f.Attributes...)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "gdb: insert record %d into %s", f.Index, name)
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// FeatureClasses returns every feature class ordered by dataset then name.
func (g *Geodatabase) FeatureClasses(ctx context.Context) ([]FeatureClass, error) {
	return g.queryFeatureClasses(ctx, "", nil)
}

// FeatureClassNames returns the names of the feature classes stored directly
// in dataset, or at the geodatabase root when dataset is empty.
func (g *Geodatabase) FeatureClassNames(ctx context.Context, dataset string) ([]string, error) {
	var fcs []FeatureClass
	var err error
	if dataset == "" {
		fcs, err = g.queryFeatureClasses(ctx, "WHERE fc.dataset IS NULL", nil)
	} else {
		if _, err := g.FeatureDataset(ctx, dataset); err != nil {
			return nil, err
		}
		fcs, err = g.queryFeatureClasses(ctx, "WHERE fc.dataset = ? COLLATE NOCASE", []any{dataset})
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, len(fcs))
	for i, fc := range fcs {
		names[i] = fc.Name
	}
	return names, nil
}

func (g *Geodatabase) queryFeatureClasses(ctx context.Context, where string, args []any) ([]FeatureClass, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT fc.table_name, COALESCE(fc.dataset, ''), gc.geometry_type_name, gc.srs_id,
			fc.feature_count, fc.source_path, fc.run_id, fc.imported_at
		FROM gdb_feature_classes fc
		JOIN gpkg_geometry_columns gc ON gc.table_name = fc.table_name
		`+where+`
		ORDER BY COALESCE(fc.dataset, ''), fc.table_name`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "gdb: query feature classes")
	}
	defer rows.Close()

	var out []FeatureClass
	for rows.Next() {
		var fc FeatureClass
		if err := rows.Scan(&fc.Name, &fc.Dataset, &fc.GeometryType, &fc.SRSID,
			&fc.FeatureCount, &fc.Source, &fc.RunID, &fc.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "gdb: scan feature class")
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}
