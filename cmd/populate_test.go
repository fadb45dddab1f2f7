package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/footprint-gdb/internal/config"
	"github.com/sells-group/footprint-gdb/internal/gdb"
	"github.com/sells-group/footprint-gdb/internal/populate"
	"github.com/sells-group/footprint-gdb/internal/shapefile/shapefiletest"
	"github.com/sells-group/footprint-gdb/internal/spatialref"
)

func parsedPopulateCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "populate"}
	registerPopulateFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func baseConfig() *config.Config {
	return &config.Config{
		Geodatabase:      config.GeodatabaseConfig{Folder: "/cfg/out", Name: config.DefaultGeodatabaseName},
		RootSource:       "/cfg/root",
		SpatialReference: "/cfg/a.prj",
		Datasets: []config.DatasetConfig{
			{Name: "GreenSeaUrchin", Source: "/cfg/green"},
		},
	}
}

func TestApplyPopulateFlags_Overrides(t *testing.T) {
	cmd := parsedPopulateCmd(t,
		"--folder", "/flag/out",
		"--name", "Other.gdb",
		"--root-source", "/flag/root",
		"--spatial-reference", "/flag/b.prj",
		"--dataset", "RedSeaUrchin=/flag/red",
		"--dataset", "SeaCucumber = /flag/cucumber",
	)
	c := baseConfig()

	require.NoError(t, applyPopulateFlags(cmd, c))
	assert.Equal(t, "/flag/out", c.Geodatabase.Folder)
	assert.Equal(t, "Other.gdb", c.Geodatabase.Name)
	assert.Equal(t, "/flag/root", c.RootSource)
	assert.Equal(t, "/flag/b.prj", c.SpatialReference)
	assert.Equal(t, []config.DatasetConfig{
		{Name: "RedSeaUrchin", Source: "/flag/red"},
		{Name: "SeaCucumber", Source: "/flag/cucumber"},
	}, c.Datasets)
}

func TestApplyPopulateFlags_UnsetFlagsKeepConfig(t *testing.T) {
	cmd := parsedPopulateCmd(t, "--folder", "/flag/out")
	c := baseConfig()

	require.NoError(t, applyPopulateFlags(cmd, c))
	assert.Equal(t, "/flag/out", c.Geodatabase.Folder)
	assert.Equal(t, config.DefaultGeodatabaseName, c.Geodatabase.Name)
	assert.Equal(t, "/cfg/root", c.RootSource)
	assert.Len(t, c.Datasets, 1)
}

func TestApplyPopulateFlags_EmptyRootSourceDisablesRootImport(t *testing.T) {
	cmd := parsedPopulateCmd(t, "--root-source", "")
	c := baseConfig()

	require.NoError(t, applyPopulateFlags(cmd, c))
	assert.Empty(t, c.RootSource)
}

func TestParseDatasetFlags_Invalid(t *testing.T) {
	for _, pair := range []string{"GreenSeaUrchin", "=/share/green", "GreenSeaUrchin="} {
		_, err := parseDatasetFlags([]string{pair})
		assert.Error(t, err, pair)
	}
}

func TestPrintSummary(t *testing.T) {
	s := &populate.Summary{
		Geodatabase:      "/out/Shellfish_Fishery_Footprint.gdb",
		SpatialReference: spatialref.SpatialReference{Name: "NAD_1983_BC_Environment_Albers", Authority: "EPSG", Code: 3005},
		Datasets:         []string{"SeaCucumber"},
		Imports: []populate.Import{
			{Source: "/share/cucumber", Destination: "/out/Shellfish_Fishery_Footprint.gdb/SeaCucumber", Inputs: []string{"a.shp", "b.shp"}},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, s)
	out := buf.String()
	assert.NotContains(t, out, "Dry run")
	assert.Contains(t, out, "Geodatabase: /out/Shellfish_Fishery_Footprint.gdb")
	assert.Contains(t, out, "NAD_1983_BC_Environment_Albers (EPSG:3005)")
	assert.Contains(t, out, "Feature dataset: SeaCucumber")
	assert.Contains(t, out, "2 feature classes: /share/cucumber -> /out/Shellfish_Fishery_Footprint.gdb/SeaCucumber")

	s.DryRun = true
	buf.Reset()
	printSummary(&buf, s)
	assert.Contains(t, buf.String(), "Dry run: nothing was written")
}

func TestLoadReport(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	src := filepath.Join(base, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	shapefiletest.Squares(t, src, "scu_beds", 2, shapefiletest.BCAlbers)

	summary, err := populate.New(gdb.NewLocal()).Run(ctx, populate.Plan{
		Folder:           base,
		Name:             "Report.gdb",
		SpatialReference: filepath.Join(src, "scu_beds.prj"),
		Datasets:         []populate.Dataset{{Name: "SeaCucumber", Source: src}},
	})
	require.NoError(t, err)

	report, err := loadReport(ctx, summary.Geodatabase)
	require.NoError(t, err)
	require.Len(t, report.Datasets, 1)
	assert.Equal(t, "SeaCucumber", report.Datasets[0].Name)
	assert.Equal(t, int32(3005), report.Datasets[0].SRSID)
	require.Len(t, report.FeatureClasses, 1)
	assert.Equal(t, "scu_beds", report.FeatureClasses[0].Name)

	var table bytes.Buffer
	formatReport(&table, report)
	assert.Contains(t, table.String(), "SeaCucumber")
	assert.Contains(t, table.String(), "MULTIPOLYGON")

	var out bytes.Buffer
	require.NoError(t, writeReportYAML(&out, report))
	assert.Contains(t, out.String(), "feature_classes:")
	assert.Contains(t, out.String(), "name: scu_beds")
	assert.Contains(t, out.String(), "dataset: SeaCucumber")
}

func TestLoadReport_Missing(t *testing.T) {
	_, err := loadReport(context.Background(), filepath.Join(t.TempDir(), "missing.gdb"))
	assert.ErrorIs(t, err, gdb.ErrNotFound)
}
