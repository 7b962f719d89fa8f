// Package assembly writes a booklet-ordered copy of a PDF using pdfcpu.
package assembly

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/local/booklet/internal/imposition"
)

// NewConfiguration returns the pdfcpu configuration used for all operations.
// pdfcpu's per-user config directory is never created.
func NewConfiguration() *model.Configuration {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := api.PageCount(f, NewConfiguration())
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// Result describes a written booklet.
type Result struct {
	Path          string
	Pages         int
	BlankStrategy string
}

// Assembler builds output documents from a plan.
type Assembler struct {
	Conf       *model.Configuration
	Strategies []BlankStrategy
	Logger     zerolog.Logger
}

// New returns an Assembler trying blankFile, then a generated divider page,
// then the last real page.
func New(blankFile string) *Assembler {
	conf := NewConfiguration()
	var strategies []BlankStrategy
	if blankFile != "" {
		strategies = append(strategies, FileBlank{Path: blankFile, Conf: conf})
	}
	strategies = append(strategies, DividerBlank{Conf: conf})
	return &Assembler{Conf: conf, Strategies: strategies, Logger: log.Logger}
}

// Selection maps the plan's order to 1-based page numbers of the workspace.
func Selection(plan imposition.Plan, blankPage int) []string {
	sel := make([]string, len(plan.Order))
	for i, idx := range plan.Order {
		p := idx + 1
		if plan.IsBlank(idx) {
			p = blankPage
		}
		sel[i] = strconv.Itoa(p)
	}
	return sel
}

// Assemble writes srcPath's pages in plan order to outPath.
func (a *Assembler) Assemble(ctx context.Context, srcPath string, plan imposition.Plan, outPath string) (Result, error) {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return Result{}, err
	}

	ws := Workspace{Data: src}
	strategy := StrategyNone
	if plan.Blanks() > 0 {
		ws, strategy = ResolveBlank(ctx, a.Logger, a.Strategies, src, plan.PageCount)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var out bytes.Buffer
	sel := Selection(plan, ws.BlankPage)
	if err := api.Collect(bytes.NewReader(ws.Data), &out, sel, a.Conf); err != nil {
		return Result{}, fmt.Errorf("collect pages: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := writeAtomic(outPath, out.Bytes()); err != nil {
		return Result{}, err
	}
	a.Logger.Info().Str("file", outPath).Int("pages", len(sel)).Str("blank_strategy", strategy).Msg("booklet written")
	return Result{Path: outPath, Pages: len(sel), BlankStrategy: strategy}, nil
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".booklet-*.pdf")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
