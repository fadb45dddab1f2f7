package gdb

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// maxNameLength matches the file geodatabase limit for table names.
const maxNameLength = 160

// ValidateName converts name into a valid geodatabase table or dataset name:
// characters outside [A-Za-z0-9_] become underscores, names that do not
// start with a letter get a "T" prefix, and the result is cut to 160
// characters.
func ValidateName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	if out == "" || !isLetter(out[0]) || strings.HasPrefix(strings.ToLower(out), "sqlite_") {
		out = "T" + out
	}
	if len(out) > maxNameLength {
		out = out[:maxNameLength]
	}
	return out
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// nameTaken reports whether name is used by any dataset, feature class or
// SQLite object, ignoring case.
func nameTaken(ctx context.Context, q querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM gdb_feature_datasets WHERE name = ?1 COLLATE NOCASE) +
			(SELECT COUNT(*) FROM gpkg_contents WHERE table_name = ?1 COLLATE NOCASE) +
			(SELECT COUNT(*) FROM sqlite_master WHERE name = ?1 COLLATE NOCASE)`,
		name,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "gdb: check name %s", name)
	}
	return n > 0, nil
}

// uniqueName returns name, or name_1, name_2, ... for the first variant not
// already in use.
func uniqueName(ctx context.Context, q querier, name string) (string, error) {
	candidate := name
	for i := 1; ; i++ {
		taken, err := nameTaken(ctx, q, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}

		suffix := "_" + strconv.Itoa(i)
		base := name
		if len(base)+len(suffix) > maxNameLength {
			base = base[:maxNameLength-len(suffix)]
		}
		candidate = base + suffix
	}
}

// columnNames validates DBF field names as column names, keeping them
// unique within the table and clear of the fid and geom columns.
func columnNames(fields []string) []string {
	used := map[string]bool{"fid": true, "geom": true}
	out := make([]string, len(fields))
	for i, f := range fields {
		base := ValidateName(f)
		name := base
		for n := 1; used[strings.ToLower(name)]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
