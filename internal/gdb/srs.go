package gdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/footprint-gdb/internal/spatialref"
)

// Undefined srs ids from the GeoPackage standard.
const (
	UndefinedCartesian  = -1
	UndefinedGeographic = 0
)

// firstCustomSRSID is where ids for definitions without an authority code start.
const firstCustomSRSID = 100000

// ensureSRS registers sr in gpkg_spatial_ref_sys if needed and returns its id.
// Authority-coded references use their EPSG code as id; others reuse the id
// of an identical definition or get the next custom id.
func ensureSRS(ctx context.Context, q querier, sr spatialref.SpatialReference) (int32, error) {
	if sr.HasCode() {
		_, err := q.ExecContext(ctx, `
			INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (srs_id) DO NOTHING`,
			sr.Name, sr.Code, sr.Authority, sr.Code, sr.WKT,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "gdb: register srs %s", sr)
		}
		return int32(sr.Code), nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT srs_id, definition FROM gpkg_spatial_ref_sys WHERE organization = 'NONE' AND srs_id >= ?`,
		firstCustomSRSID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "gdb: query custom srs")
	}
	for rows.Next() {
		var id int32
		var def string
		if err := rows.Scan(&id, &def); err != nil {
			rows.Close()
			return 0, eris.Wrap(err, "gdb: scan custom srs")
		}
		if (spatialref.SpatialReference{WKT: def}).Equal(sr) {
			rows.Close()
			return id, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, eris.Wrap(err, "gdb: iterate custom srs")
	}
	rows.Close()

	var id int32
	if err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(srs_id) + 1, ?1) FROM gpkg_spatial_ref_sys WHERE srs_id >= ?1`,
		firstCustomSRSID,
	).Scan(&id); err != nil {
		return 0, eris.Wrap(err, "gdb: next custom srs id")
	}

	if _, err := q.ExecContext(ctx, `
		INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition)
		VALUES (?, ?, 'NONE', ?, ?)`,
		sr.Name, id, id, sr.WKT,
	); err != nil {
		return 0, eris.Wrapf(err, "gdb: register srs %s", sr)
	}
	return id, nil
}

// spatialReference loads the srs row with the given id.
func spatialReference(ctx context.Context, q querier, id int32) (spatialref.SpatialReference, error) {
	var name, org, def string
	var orgID int
	err := q.QueryRowContext(ctx,
		`SELECT srs_name, organization, organization_coordsys_id, definition FROM gpkg_spatial_ref_sys WHERE srs_id = ?`,
		id,
	).Scan(&name, &org, &orgID, &def)
	if errors.Is(err, sql.ErrNoRows) {
		return spatialref.SpatialReference{}, eris.Wrapf(ErrNotFound, "gdb: srs %d", id)
	}
	if err != nil {
		return spatialref.SpatialReference{}, eris.Wrapf(err, "gdb: load srs %d", id)
	}

	sr := spatialref.SpatialReference{Name: name, WKT: def}
	if org != "NONE" {
		sr.Authority, sr.Code = org, orgID
	}
	if parsed, err := spatialref.Parse(def); err == nil {
		sr.Kind = parsed.Kind
	}
	return sr, nil
}
