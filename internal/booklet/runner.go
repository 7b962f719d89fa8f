// Package booklet runs the end-to-end pipeline for one document: resolve,
// count, plan, report, assemble, publish.
package booklet

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/local/booklet/internal/assembly"
	"github.com/local/booklet/internal/config"
	"github.com/local/booklet/internal/filetype"
	"github.com/local/booklet/internal/imposition"
	"github.com/local/booklet/internal/source"
	"github.com/local/booklet/internal/storage"
)

// Publisher uploads a finished booklet and returns its remote reference.
type Publisher interface {
	Upload(ctx context.Context, localPath string, meta storage.BookletMeta) (string, error)
}

// Recorder receives run metrics.
type Recorder interface {
	ObserveSource(pageCount int)
	ObserveOutput(pages, blanks int)
	IncBlankStrategy(strategy string)
	ObserveRun(err error, dur time.Duration)
}

// Dependencies wires the runner's collaborators. Publisher and Metrics may be nil.
type Dependencies struct {
	Resolver  *source.Resolver
	Detector  *filetype.Detector
	Assembler *assembly.Assembler
	Publisher Publisher
	Metrics   Recorder
	Logger    zerolog.Logger
}

// Runner produces booklets.
type Runner struct {
	paths config.PathsConfig
	deps  Dependencies
	out   io.Writer
}

// Report summarises one run.
type Report struct {
	RunID     string
	Source    string
	Plan      imposition.Plan
	Output    assembly.Result
	RemoteRef string
}

// New creates a runner writing the layout table and summary to out.
func New(paths config.PathsConfig, deps Dependencies, out io.Writer) *Runner {
	if deps.Resolver == nil {
		deps.Resolver = source.NewResolver()
	}
	if deps.Detector == nil {
		deps.Detector = filetype.New()
	}
	if deps.Assembler == nil {
		deps.Assembler = assembly.New(paths.BlankFile)
	}
	return &Runner{paths: paths, deps: deps, out: out}
}

// OutputPath returns the booklet path for a source file name.
func (r *Runner) OutputPath(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(r.paths.OutputDir, stem+r.paths.OutputSuffix+".pdf")
}

// Run reorders the document at ref into booklet order.
func (r *Runner) Run(ctx context.Context, ref string) (rep Report, err error) {
	start := time.Now()
	rep.RunID = uuid.NewString()
	rep.Source = ref
	logger := r.deps.Logger.With().Str("run_id", rep.RunID).Str("source", ref).Logger()
	defer func() {
		if r.deps.Metrics != nil {
			r.deps.Metrics.ObserveRun(err, time.Since(start))
		}
		if err != nil {
			logger.Error().Err(err).Msg("booklet run failed")
		}
	}()

	local, err := r.deps.Resolver.Resolve(ctx, ref)
	if err != nil {
		return rep, err
	}
	defer local.Cleanup()

	if err := r.deps.Detector.RequirePDF(local.Path); err != nil {
		return rep, err
	}

	total, err := assembly.PageCount(local.Path)
	if err != nil {
		return rep, err
	}
	plan, err := imposition.NewPlan(total)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", local.Name, err)
	}
	rep.Plan = plan
	logger.Info().Int("pages", plan.PageCount).Int("padded", plan.Padded).Int("sheets", len(plan.Sheets())).Msg("booklet planned")
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveSource(plan.PageCount)
	}

	if err := imposition.WriteLayout(r.out, plan.Order, plan.PageCount); err != nil {
		return rep, fmt.Errorf("write layout: %w", err)
	}

	if err := os.MkdirAll(r.paths.OutputDir, 0o755); err != nil {
		return rep, fmt.Errorf("create output dir: %w", err)
	}
	asm := *r.deps.Assembler
	asm.Logger = logger
	res, err := asm.Assemble(ctx, local.Path, plan, r.OutputPath(local.Name))
	if err != nil {
		return rep, err
	}
	rep.Output = res
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveOutput(res.Pages, plan.Blanks())
		if res.BlankStrategy != assembly.StrategyNone {
			r.deps.Metrics.IncBlankStrategy(res.BlankStrategy)
		}
	}

	fmt.Fprintf(r.out, "\nSaved: %s  (%d pages)\n", res.Path, res.Pages)

	if r.deps.Publisher != nil {
		remote, err := r.deps.Publisher.Upload(ctx, res.Path, storage.BookletMeta{
			SourceName: local.Name,
			PageCount:  plan.PageCount,
			Padded:     plan.Padded,
		})
		if err != nil {
			return rep, err
		}
		rep.RemoteRef = remote
		fmt.Fprintf(r.out, "Uploaded: %s\n", remote)
	}
	return rep, nil
}
