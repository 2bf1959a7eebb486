// Package pipeline runs one extract, transform, and load pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvetl/internal/extract"
	"github.com/JonMunkholm/csvetl/internal/load"
	"github.com/JonMunkholm/csvetl/internal/logging"
	"github.com/JonMunkholm/csvetl/internal/transform"
)

// Defaults used when the corresponding Params field is empty.
const (
	DefaultInputPath   = "sample_data.csv"
	DefaultDestination = "analytics.db"
	DefaultTableName   = "clean_sales_data"
)

// Stage identifies the step a run is in.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// StageError reports which stage failed and on what resource.
type StageError struct {
	Stage    Stage
	Resource string // input path, or destination/table
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Resource, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Params describes one run.
type Params struct {
	InputPath   string
	Destination string
	TableName   string
	Transform   transform.Options
}

func (p Params) withDefaults() Params {
	if p.InputPath == "" {
		p.InputPath = DefaultInputPath
	}
	if p.Destination == "" {
		p.Destination = DefaultDestination
	}
	if p.TableName == "" {
		p.TableName = DefaultTableName
	}
	return p
}

// Result summarizes a finished run.
type Result struct {
	RunID string

	// Skipped is true when the input file did not exist and nothing ran.
	Skipped bool

	RowsExtracted int
	RowsLoaded    int
	Columns       []string
	Transform     transform.Summary
	Duration      time.Duration
}

// Runner executes runs against a Loader.
type Runner struct {
	loader *load.Loader
	newID  func() string
}

// New returns a Runner that writes through loader.
func New(loader *load.Loader) *Runner {
	return &Runner{loader: loader, newID: uuid.NewString}
}

// Run extracts p.InputPath, transforms it, and replaces p.TableName at
// p.Destination. A missing input file is not an error: the run is logged
// and returned as skipped.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	p = p.withDefaults()
	start := time.Now()

	res := &Result{RunID: r.newID()}
	ctx = logging.WithRunID(ctx, res.RunID)
	logger := logging.FromContext(ctx)

	if _, err := os.Stat(p.InputPath); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("input file not found, nothing to do", "path", p.InputPath)
		res.Skipped = true
		res.Duration = time.Since(start)
		return res, nil
	}

	logger.Info("stage started", "stage", StageExtract, "path", p.InputPath)
	raw, err := extract.Extract(ctx, p.InputPath)
	if err != nil {
		return nil, r.fail(ctx, StageExtract, p.InputPath, err)
	}
	res.RowsExtracted = raw.NumRows()

	logger.Info("stage started", "stage", StageTransform,
		"rows", raw.NumRows(), "columns", raw.NumColumns())
	clean, sum, err := transform.Apply(raw, p.Transform)
	if err != nil {
		return nil, r.fail(ctx, StageTransform, p.InputPath, err)
	}
	res.Transform = sum
	if len(sum.DuplicateNames) > 0 {
		logger.Warn("duplicate column names collapsed", "columns", sum.DuplicateNames)
	}
	if !sum.DateFiltered {
		logger.Info("date column not present, recency filter skipped",
			"column", dateColumn(p.Transform))
	}

	resource := load.Describe(p.Destination) + "/" + p.TableName
	logger.Info("stage started", "stage", StageLoad,
		"destination", load.Describe(p.Destination), "table", p.TableName, "rows", clean.NumRows())
	if err := r.loader.Load(ctx, clean, p.Destination, p.TableName); err != nil {
		return nil, r.fail(ctx, StageLoad, resource, err)
	}

	res.RowsLoaded = clean.NumRows()
	res.Columns = clean.Names()
	res.Duration = time.Since(start)

	logger.Info("load complete",
		"table", p.TableName,
		"rows", res.RowsLoaded,
		"dropped_null", sum.NullDropped,
		"dropped_date", sum.DateDropped,
		"duration", res.Duration,
	)
	return res, nil
}

func (r *Runner) fail(ctx context.Context, stage Stage, resource string, err error) error {
	serr := &StageError{Stage: stage, Resource: resource, Err: err}
	logging.FromContext(ctx).Error("stage failed",
		"stage", stage,
		"resource", resource,
		"error", err,
		"code", MapError(err).Code,
	)
	return serr
}

func dateColumn(o transform.Options) string {
	if o.DateColumn == "" {
		return transform.DefaultDateColumn
	}
	return o.DateColumn
}
