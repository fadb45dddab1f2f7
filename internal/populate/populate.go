// Package populate builds the shellfish fishery footprint geodatabase: it
// creates the geodatabase, imports the root shapefiles, creates one feature
// dataset per fishery and fills each from its own source folder.
package populate

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/footprint-gdb/internal/config"
	"github.com/sells-group/footprint-gdb/internal/spatialref"
)

// Backend is the geoprocessing surface the workflow drives. Workspaces and
// destinations are folder paths, geodatabase paths or <gdb>/<dataset> paths.
type Backend interface {
	CreateGeodatabase(ctx context.Context, folder, name string) (string, error)
	ListFeatureClasses(ctx context.Context, workspace string) ([]string, error)
	ConvertFeatureClasses(ctx context.Context, inputs []string, destination string) error
	SpatialReference(ctx context.Context, prjPath string) (spatialref.SpatialReference, error)
	CreateFeatureDataset(ctx context.Context, gdbPath, name string, sr spatialref.SpatialReference) error
}

// Dataset pairs a feature dataset name with its source folder.
type Dataset struct {
	Name   string
	Source string
}

// Plan describes one populate run.
type Plan struct {
	Folder           string
	Name             string
	RootSource       string // optional; skipped when empty
	SpatialReference string // .prj shared by every dataset
	Datasets         []Dataset
	DryRun           bool
}

// PlanFromConfig builds a Plan from loaded configuration.
func PlanFromConfig(cfg *config.Config) Plan {
	plan := Plan{
		Folder:           cfg.Geodatabase.Folder,
		Name:             cfg.Geodatabase.Name,
		RootSource:       cfg.RootSource,
		SpatialReference: cfg.SpatialReference,
	}
	for _, ds := range cfg.Datasets {
		plan.Datasets = append(plan.Datasets, Dataset{Name: ds.Name, Source: ds.Source})
	}
	return plan
}

// Import records one conversion call.
type Import struct {
	Source      string
	Destination string
	Inputs      []string
}

// Summary reports what a run did, or would do for a dry run.
type Summary struct {
	Geodatabase      string
	SpatialReference spatialref.SpatialReference
	Datasets         []string
	Imports          []Import
	DryRun           bool
}

// Runner executes populate plans against a Backend.
type Runner struct {
	backend Backend
}

// New creates a Runner.
func New(backend Backend) *Runner {
	return &Runner{backend: backend}
}

// Run executes plan: create the geodatabase, import the root source, create
// the feature datasets with the shared spatial reference, then import each
// dataset's source into it. The first error stops the run; nothing already
// written is undone.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Summary, error) {
	log := zap.L().With(zap.String("component", "populate"))
	summary := &Summary{DryRun: plan.DryRun}

	warnOverlaps(log, plan)

	// Step 1: geodatabase.
	if plan.DryRun {
		summary.Geodatabase = filepath.Join(plan.Folder, plan.Name)
	} else {
		path, err := r.backend.CreateGeodatabase(ctx, plan.Folder, plan.Name)
		if err != nil {
			return summary, eris.Wrap(err, "populate: create geodatabase")
		}
		summary.Geodatabase = path
	}
	log = log.With(zap.String("geodatabase", summary.Geodatabase))

	// Step 2: root shapefiles.
	if plan.RootSource != "" {
		imp, err := r.importInto(ctx, plan.RootSource, summary.Geodatabase, plan.DryRun)
		if err != nil {
			return summary, eris.Wrap(err, "populate: import root source")
		}
		summary.Imports = append(summary.Imports, imp)
	} else {
		log.Info("no root source configured, skipping root import")
	}

	// Steps 3 and 4: feature datasets, then each category into its own.
	if len(plan.Datasets) > 0 {
		if err := r.populateDatasets(ctx, log, plan, summary); err != nil {
			return summary, err
		}
	}

	log.Info("populate complete",
		zap.Int("datasets", len(summary.Datasets)),
		zap.Int("imports", len(summary.Imports)),
		zap.Bool("dry_run", plan.DryRun),
	)
	return summary, nil
}

// populateDatasets creates the feature datasets with the shared spatial
// reference (step 3) and imports each category into its own dataset (step 4).
func (r *Runner) populateDatasets(ctx context.Context, log *zap.Logger, plan Plan, summary *Summary) error {
	sr, err := r.backend.SpatialReference(ctx, plan.SpatialReference)
	if err != nil {
		return eris.Wrap(err, "populate: read spatial reference")
	}
	summary.SpatialReference = sr
	log.Info("spatial reference loaded",
		zap.String("path", plan.SpatialReference),
		zap.String("spatial_reference", sr.String()),
	)

	for _, ds := range plan.Datasets {
		if !plan.DryRun {
			if err := r.backend.CreateFeatureDataset(ctx, summary.Geodatabase, ds.Name, sr); err != nil {
				return eris.Wrapf(err, "populate: create datasets: %s", ds.Name)
			}
		}
		summary.Datasets = append(summary.Datasets, ds.Name)
	}

	for _, ds := range plan.Datasets {
		dest := filepath.Join(summary.Geodatabase, ds.Name)
		imp, err := r.importInto(ctx, ds.Source, dest, plan.DryRun)
		if err != nil {
			return eris.Wrapf(err, "populate: import dataset %s", ds.Name)
		}
		summary.Imports = append(summary.Imports, imp)
	}
	return nil
}

// importInto lists workspace and converts everything found into destination
// with a single conversion call.
func (r *Runner) importInto(ctx context.Context, workspace, destination string, dryRun bool) (Import, error) {
	imp := Import{Source: workspace, Destination: destination}

	inputs, err := r.backend.ListFeatureClasses(ctx, workspace)
	if err != nil {
		return imp, err
	}
	imp.Inputs = inputs

	zap.L().Info("importing feature classes",
		zap.String("component", "populate"),
		zap.String("source", workspace),
		zap.String("destination", destination),
		zap.Int("count", len(inputs)),
		zap.Bool("dry_run", dryRun),
	)
	if dryRun {
		return imp, nil
	}

	if err := r.backend.ConvertFeatureClasses(ctx, inputs, destination); err != nil {
		return imp, err
	}
	return imp, nil
}

// warnOverlaps logs source folders listed more than once. Listing is not
// recursive, so only the same folder yields the same shapefiles.
func warnOverlaps(log *zap.Logger, plan Plan) {
	type source struct{ label, path string }

	var sources []source
	if plan.RootSource != "" {
		sources = append(sources, source{"root", plan.RootSource})
	}
	for _, ds := range plan.Datasets {
		if ds.Source != "" {
			sources = append(sources, source{ds.Name, ds.Source})
		}
	}

	for i := range sources {
		for j := i + 1; j < len(sources); j++ {
			if overlaps(sources[i].path, sources[j].path) {
				log.Warn("source folder listed twice; its shapefiles will be imported again with suffixed names",
					zap.String("first", sources[i].label),
					zap.String("first_path", sources[i].path),
					zap.String("second", sources[j].label),
					zap.String("second_path", sources[j].path),
				)
			}
		}
	}
}

func overlaps(a, b string) bool {
	return strings.EqualFold(normalize(a), normalize(b))
}

func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
