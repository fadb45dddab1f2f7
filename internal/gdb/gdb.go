// Package gdb stores feature datasets and feature classes in a single-file
// geodatabase. The file is SQLite laid out as a GeoPackage (srs, contents and
// geometry column tables, GP geometry blobs) plus gdb_* catalog tables for
// feature datasets and import runs.
package gdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// GeoPackage identification written to the SQLite header.
const (
	applicationID = 0x47504B47 // "GPKG"
	userVersion   = 10300
)

const schema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name                 TEXT NOT NULL,
	srs_id                   INTEGER PRIMARY KEY,
	organization             TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT NOT NULL,
	description              TEXT
);

CREATE TABLE gpkg_contents (
	table_name  TEXT NOT NULL PRIMARY KEY,
	data_type   TEXT NOT NULL,
	identifier  TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	min_x       DOUBLE,
	min_y       DOUBLE,
	max_x       DOUBLE,
	max_y       DOUBLE,
	srs_id      INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

CREATE TABLE gpkg_geometry_columns (
	table_name         TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id             INTEGER NOT NULL,
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
	CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
	CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

CREATE TABLE gdb_feature_datasets (
	name       TEXT NOT NULL PRIMARY KEY COLLATE NOCASE,
	srs_id     INTEGER NOT NULL REFERENCES gpkg_spatial_ref_sys(srs_id),
	created_at DATETIME NOT NULL
);

CREATE TABLE gdb_import_runs (
	id              TEXT PRIMARY KEY,
	destination     TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	feature_classes INTEGER NOT NULL DEFAULT 0,
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME
);

CREATE TABLE gdb_feature_classes (
	table_name    TEXT NOT NULL PRIMARY KEY REFERENCES gpkg_contents(table_name),
	dataset       TEXT REFERENCES gdb_feature_datasets(name),
	source_path   TEXT NOT NULL,
	feature_count INTEGER NOT NULL,
	run_id        TEXT NOT NULL REFERENCES gdb_import_runs(id),
	imported_at   DATETIME NOT NULL
);

CREATE INDEX idx_gdb_feature_classes_dataset ON gdb_feature_classes(dataset);

INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition, description) VALUES
	('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', 'undefined cartesian coordinate reference system'),
	('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', 'undefined geographic coordinate reference system'),
	('WGS 84 geodetic', 4326, 'EPSG', 4326,
	 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AXIS["Latitude",NORTH],AXIS["Longitude",EAST],AUTHORITY["EPSG","4326"]]',
	 'longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid');
`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Geodatabase is an open geodatabase file.
type Geodatabase struct {
	path string
	db   *sql.DB
}

// Create creates a new, empty geodatabase at path. The parent folder must
// exist, path must not, and its name must end in .gdb or .gpkg.
func Create(ctx context.Context, path string) (*Geodatabase, error) {
	if !IsGeodatabasePath(path) {
		return nil, eris.Wrapf(ErrInvalidName, "gdb: %s: geodatabase name must end in .gdb or .gpkg", path)
	}

	folder := filepath.Dir(path)
	info, err := os.Stat(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "gdb: folder %s", folder)
		}
		return nil, eris.Wrapf(err, "gdb: stat %s", folder)
	}
	if !info.IsDir() {
		return nil, eris.Wrapf(ErrNotFound, "gdb: %s is not a folder", folder)
	}

	// O_EXCL makes the existence check and the create one step.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, eris.Wrapf(ErrAlreadyExists, "gdb: geodatabase %s", path)
		}
		return nil, eris.Wrapf(err, "gdb: create %s", path)
	}
	_ = f.Close()

	g, err := open(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	if err := g.initSchema(ctx); err != nil {
		_ = g.Close()
		_ = os.Remove(path)
		return nil, err
	}

	zap.L().Info("geodatabase created",
		zap.String("component", "gdb"),
		zap.String("path", path),
	)
	return g, nil
}

// Open opens an existing geodatabase.
func Open(path string) (*Geodatabase, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "gdb: geodatabase %s", path)
		}
		return nil, eris.Wrapf(err, "gdb: stat %s", path)
	}
	if info.IsDir() {
		return nil, eris.Errorf("gdb: %s is a directory, not a geodatabase file", path)
	}

	g, err := open(path)
	if err != nil {
		return nil, err
	}

	var appID int64
	if err := g.db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		_ = g.Close()
		return nil, eris.Wrapf(err, "gdb: read application id of %s", path)
	}
	if appID != applicationID {
		_ = g.Close()
		return nil, eris.Errorf("gdb: %s is not a geodatabase", path)
	}
	return g, nil
}

func open(path string) (*Geodatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "gdb: open")
	}
	// One connection keeps the pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "gdb: exec %s", pragma)
		}
	}
	return &Geodatabase{path: path, db: db}, nil
}

func (g *Geodatabase) initSchema(ctx context.Context) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "gdb: begin schema")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return eris.Wrap(err, "gdb: create schema")
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "gdb: commit schema")
	}

	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA application_id=%d", applicationID),
		fmt.Sprintf("PRAGMA user_version=%d", userVersion),
	} {
		if _, err := g.db.ExecContext(ctx, pragma); err != nil {
			return eris.Wrapf(err, "gdb: exec %s", pragma)
		}
	}
	return nil
}

// Path returns the geodatabase file path.
func (g *Geodatabase) Path() string { return g.path }

// Close closes the underlying database.
func (g *Geodatabase) Close() error {
	return g.db.Close()
}
