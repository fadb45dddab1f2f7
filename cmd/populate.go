package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/footprint-gdb/internal/config"
	"github.com/sells-group/footprint-gdb/internal/gdb"
	"github.com/sells-group/footprint-gdb/internal/populate"
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Create and populate the footprint geodatabase",
	Long: `Runs the four populate steps in order:

  1. create <folder>/<name>
  2. import every shapefile in the root source folder
  3. create the feature datasets with the spatial reference from --spatial-reference
  4. import each dataset's source folder into that dataset

Flags override config.yaml. The first failing step stops the run and
leaves the geodatabase as it is.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyPopulateFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		plan := populate.PlanFromConfig(cfg)
		plan.DryRun, _ = cmd.Flags().GetBool("dry-run")

		zap.L().With(zap.String("command", "populate")).Info("starting populate",
			zap.String("folder", plan.Folder),
			zap.String("name", plan.Name),
			zap.String("root_source", plan.RootSource),
			zap.String("spatial_reference", plan.SpatialReference),
			zap.Int("datasets", len(plan.Datasets)),
			zap.Bool("dry_run", plan.DryRun),
		)

		summary, err := populate.New(gdb.NewLocal()).Run(ctx, plan)
		if err != nil {
			return err
		}

		printSummary(os.Stdout, summary)
		return nil
	},
}

func init() {
	registerPopulateFlags(populateCmd)
	rootCmd.AddCommand(populateCmd)
}

func registerPopulateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("folder", "", "folder the geodatabase is created in")
	f.String("name", "", "geodatabase file name (default: "+config.DefaultGeodatabaseName+")")
	f.String("root-source", "", "folder whose shapefiles are imported at the geodatabase root")
	f.String("spatial-reference", "", ".prj file shared by every feature dataset")
	f.StringArray("dataset", nil, "feature dataset as NAME=FOLDER (repeatable; replaces configured datasets)")
	f.Bool("dry-run", false, "list sources and read the spatial reference without writing")
}

// applyPopulateFlags copies explicitly set flags over the loaded config.
func applyPopulateFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("folder") {
		c.Geodatabase.Folder, _ = f.GetString("folder")
	}
	if f.Changed("name") {
		c.Geodatabase.Name, _ = f.GetString("name")
	}
	if f.Changed("root-source") {
		c.RootSource, _ = f.GetString("root-source")
	}
	if f.Changed("spatial-reference") {
		c.SpatialReference, _ = f.GetString("spatial-reference")
	}
	if f.Changed("dataset") {
		specs, _ := f.GetStringArray("dataset")
		datasets, err := parseDatasetFlags(specs)
		if err != nil {
			return err
		}
		c.Datasets = datasets
	}
	return nil
}

// parseDatasetFlags parses NAME=FOLDER pairs.
func parseDatasetFlags(specs []string) ([]config.DatasetConfig, error) {
	out := make([]config.DatasetConfig, 0, len(specs))
	for _, pair := range specs {
		name, source, ok := strings.Cut(pair, "=")
		name, source = strings.TrimSpace(name), strings.TrimSpace(source)
		if !ok || name == "" || source == "" {
			return nil, eris.Errorf("populate: --dataset %q: want NAME=FOLDER", pair)
		}
		out = append(out, config.DatasetConfig{Name: name, Source: source})
	}
	return out, nil
}

func printSummary(out io.Writer, s *populate.Summary) {
	if s.DryRun {
		_, _ = fmt.Fprintln(out, "Dry run: nothing was written")
	}
	_, _ = fmt.Fprintf(out, "Geodatabase: %s\n", s.Geodatabase)
	if s.SpatialReference.Name != "" {
		_, _ = fmt.Fprintf(out, "Spatial reference: %s\n", s.SpatialReference)
	}
	for _, name := range s.Datasets {
		_, _ = fmt.Fprintf(out, "Feature dataset: %s\n", name)
	}
	for _, imp := range s.Imports {
		_, _ = fmt.Fprintf(out, "%d feature classes: %s -> %s\n", len(imp.Inputs), imp.Source, imp.Destination)
	}
}
