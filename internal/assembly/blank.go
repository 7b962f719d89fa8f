package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
)

// Strategy names, as reported in Result and metrics.
const (
	StrategyNone     = "none"
	StrategyFile     = "file"
	StrategyDivider  = "divider"
	StrategyLastPage = "last-page"
)

// Workspace is a document whose first PageCount pages are the source, with
// a page usable as blank at BlankPage (1-based). BlankPage is 0 when the
// plan needs no padding.
type Workspace struct {
	Data      []byte
	BlankPage int
}

// BlankStrategy produces a workspace holding a blank page.
type BlankStrategy interface {
	Name() string
	Prepare(ctx context.Context, src []byte, pageCount int) (Workspace, error)
}

// FileBlank uses the first page of an external PDF as the blank.
type FileBlank struct {
	Path string
	Conf *model.Configuration
}

func (FileBlank) Name() string { return StrategyFile }

func (b FileBlank) Prepare(ctx context.Context, src []byte, pageCount int) (Workspace, error) {
	blank, err := os.ReadFile(b.Path)
	if err != nil {
		return Workspace{}, err
	}
	n, err := api.PageCount(bytes.NewReader(blank), b.Conf)
	if err != nil {
		return Workspace{}, fmt.Errorf("read blank %s: %w", b.Path, err)
	}
	if n < 1 {
		return Workspace{}, fmt.Errorf("blank %s has no pages", b.Path)
	}
	var out bytes.Buffer
	if err := api.MergeRaw([]io.ReadSeeker{bytes.NewReader(src), bytes.NewReader(blank)}, &out, false, b.Conf); err != nil {
		return Workspace{}, fmt.Errorf("merge blank: %w", err)
	}
	return Workspace{Data: out.Bytes(), BlankPage: pageCount + 1}, nil
}

// DividerBlank has pdfcpu generate an empty page sized like the source's
// last page, by merging the source with itself using a divider page.
type DividerBlank struct {
	Conf *model.Configuration
}

func (DividerBlank) Name() string { return StrategyDivider }

func (b DividerBlank) Prepare(ctx context.Context, src []byte, pageCount int) (Workspace, error) {
	var out bytes.Buffer
	rs := []io.ReadSeeker{bytes.NewReader(src), bytes.NewReader(src)}
	if err := api.MergeRaw(rs, &out, true, b.Conf); err != nil {
		return Workspace{}, fmt.Errorf("merge with divider: %w", err)
	}
	n, err := api.PageCount(bytes.NewReader(out.Bytes()), b.Conf)
	if err != nil {
		return Workspace{}, err
	}
	if n <= 2*pageCount {
		return Workspace{}, fmt.Errorf("no divider page generated (%d pages)", n)
	}
	return Workspace{Data: out.Bytes(), BlankPage: pageCount + 1}, nil
}

// LastPage reuses the source's last real page in blank slots. It always
// succeeds.
type LastPage struct{}

func (LastPage) Name() string { return StrategyLastPage }

func (LastPage) Prepare(ctx context.Context, src []byte, pageCount int) (Workspace, error) {
	return Workspace{Data: src, BlankPage: pageCount}, nil
}

// ResolveBlank tries strategies in order and adopts the first success.
// LastPage is used when every strategy fails.
func ResolveBlank(ctx context.Context, logger zerolog.Logger, strategies []BlankStrategy, src []byte, pageCount int) (Workspace, string) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}
		ws, err := s.Prepare(ctx, src, pageCount)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug().Err(err).Str("strategy", s.Name()).Msg("blank page source not present")
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Str("strategy", s.Name()).Msg("blank page source unavailable")
			continue
		}
		logger.Debug().Str("strategy", s.Name()).Int("blank_page", ws.BlankPage).Msg("blank page resolved")
		return ws, s.Name()
	}
	ws, _ := LastPage{}.Prepare(ctx, src, pageCount)
	logger.Warn().Int("page", pageCount).Msg("no blank page source; reusing last page in blank slots")
	return ws, StrategyLastPage
}
