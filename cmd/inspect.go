package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/footprint-gdb/internal/gdb"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <geodatabase>",
	Short: "List the feature datasets and feature classes of a geodatabase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "table" && format != "yaml" {
			return eris.Errorf("inspect: unknown format %q (want table or yaml)", format)
		}

		report, err := loadReport(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if format == "yaml" {
			return writeReportYAML(os.Stdout, report)
		}
		formatReport(os.Stdout, report)
		return nil
	},
}

func init() {
	inspectCmd.Flags().String("format", "table", "output format: table or yaml")
	rootCmd.AddCommand(inspectCmd)
}

type datasetReport struct {
	Name             string `yaml:"name"`
	SpatialReference string `yaml:"spatial_reference"`
	SRSID            int32  `yaml:"srs_id"`
}

type inspectReport struct {
	Geodatabase    string             `yaml:"geodatabase"`
	Datasets       []datasetReport    `yaml:"datasets"`
	FeatureClasses []gdb.FeatureClass `yaml:"feature_classes"`
}

func loadReport(ctx context.Context, path string) (*inspectReport, error) {
	g, err := gdb.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = g.Close() }()

	datasets, err := g.Datasets(ctx)
	if err != nil {
		return nil, err
	}
	fcs, err := g.FeatureClasses(ctx)
	if err != nil {
		return nil, err
	}

	report := &inspectReport{Geodatabase: path, FeatureClasses: fcs}
	for _, ds := range datasets {
		report.Datasets = append(report.Datasets, datasetReport{
			Name:             ds.Name,
			SpatialReference: ds.SpatialReference.String(),
			SRSID:            ds.SRSID,
		})
	}
	return report, nil
}

func writeReportYAML(out io.Writer, report *inspectReport) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return eris.Wrap(err, "inspect: encode yaml")
	}
	return enc.Close()
}

// formatReport writes datasets and feature classes as two tables.
func formatReport(out io.Writer, report *inspectReport) {
	_, _ = fmt.Fprintf(out, "Geodatabase: %s\n\n", report.Geodatabase)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tSRS ID\tSPATIAL REFERENCE")
	_, _ = fmt.Fprintln(w, "-------\t------\t-----------------")
	for _, ds := range report.Datasets {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", ds.Name, ds.SRSID, ds.SpatialReference)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FEATURE CLASS\tDATASET\tGEOMETRY\tFEATURES\tIMPORTED\tSOURCE")
	_, _ = fmt.Fprintln(w, "-------------\t-------\t--------\t--------\t--------\t------")
	for _, fc := range report.FeatureClasses {
		dataset := fc.Dataset
		if dataset == "" {
			dataset = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			fc.Name,
			dataset,
			fc.GeometryType,
			fc.FeatureCount,
			fc.ImportedAt.Format("2006-01-02 15:04"),
			fc.Source,
		)
	}
	_ = w.Flush()
}
