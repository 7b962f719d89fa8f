package assembly

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/local/booklet/internal/imposition"
	"github.com/local/booklet/internal/pdftest"
)

func TestSelection(t *testing.T) {
	plan, err := imposition.NewPlan(5) // order 7 0 1 6 5 2 3 4
	if err != nil {
		t.Fatal(err)
	}
	got := Selection(plan, 6)
	want := []string{"6", "1", "2", "6", "6", "3", "4", "5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Selection = %v, want %v", got, want)
	}

	// last-page fallback points blanks at the final real page
	got = Selection(plan, 5)
	want = []string{"5", "1", "2", "5", "5", "3", "4", "5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Selection = %v, want %v", got, want)
	}
}

type stubStrategy struct {
	name  string
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Prepare(ctx context.Context, src []byte, n int) (Workspace, error) {
	s.calls++
	if s.err != nil {
		return Workspace{}, s.err
	}
	return Workspace{Data: src, BlankPage: 99}, nil
}

func TestResolveBlankFirstSuccessWins(t *testing.T) {
	a := &stubStrategy{name: "a", err: errors.New("missing")}
	b := &stubStrategy{name: "b"}
	c := &stubStrategy{name: "c"}

	ws, name := ResolveBlank(context.Background(), zerolog.Nop(), []BlankStrategy{a, b, c}, []byte("x"), 3)
	if name != "b" || ws.BlankPage != 99 {
		t.Errorf("got %q %+v", name, ws)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 0 {
		t.Errorf("calls a=%d b=%d c=%d", a.calls, b.calls, c.calls)
	}
}

func TestResolveBlankFallsBackToLastPage(t *testing.T) {
	a := &stubStrategy{name: "a", err: errors.New("missing")}
	ws, name := ResolveBlank(context.Background(), zerolog.Nop(), []BlankStrategy{a}, []byte("x"), 7)
	if name != StrategyLastPage || ws.BlankPage != 7 {
		t.Errorf("got %q %+v", name, ws)
	}
}

func assemble(t *testing.T, a *Assembler, pages int) (Result, string) {
	t.Helper()
	src := pdftest.Write(t, "src.pdf", pages)
	plan, err := imposition.NewPlan(pages)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "src_booklet.pdf")
	res, err := a.Assemble(context.Background(), src, plan, out)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return res, out
}

func TestAssembleNoPadding(t *testing.T) {
	a := &Assembler{Conf: NewConfiguration(), Logger: zerolog.Nop()}
	res, out := assemble(t, a, 8)
	if res.Pages != 8 || res.BlankStrategy != StrategyNone {
		t.Errorf("result = %+v", res)
	}
	want := []string{"8", "1", "2", "7", "6", "3", "4", "5"}
	if got := pdftest.PageLabels(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("pages = %v, want %v", got, want)
	}
}

func TestAssemblePageOrder(t *testing.T) {
	b := pdftest.Blank
	tests := []struct {
		name     string
		pages    int
		blank    bool // provide an external blank file
		strategy string
		want     []string
	}{
		{"divider 3", 3, false, StrategyDivider, []string{b, "1", "2", "3"}},
		{"divider 5", 5, false, StrategyDivider, []string{b, "1", "2", b, b, "3", "4", "5"}},
		{"divider 6", 6, false, StrategyDivider, []string{b, "1", "2", b, "6", "3", "4", "5"}},
		{"file 5", 5, true, StrategyFile, []string{b, "1", "2", b, b, "3", "4", "5"}},
		{"file 7", 7, true, StrategyFile, []string{b, "1", "2", "7", "6", "3", "4", "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blankFile := filepath.Join(t.TempDir(), "none.pdf")
			if tt.blank {
				blankFile = pdftest.WriteBlank(t, "blank.pdf")
			}
			a := New(blankFile)
			a.Logger = zerolog.Nop()

			res, out := assemble(t, a, tt.pages)
			if res.BlankStrategy != tt.strategy {
				t.Errorf("strategy = %q, want %q", res.BlankStrategy, tt.strategy)
			}
			if got := pdftest.PageLabels(t, out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("pages = %v, want %v", got, tt.want)
			}
			for i, sz := range pdftest.PageSizes(t, out) {
				if sz != pdftest.A5 {
					t.Errorf("page %d size = %+v, want %+v", i+1, sz, pdftest.A5)
				}
			}
		})
	}
}

func TestAssembleLastPageFallback(t *testing.T) {
	a := &Assembler{Conf: NewConfiguration(), Logger: zerolog.Nop()}
	res, out := assemble(t, a, 5)
	if res.BlankStrategy != StrategyLastPage {
		t.Errorf("strategy = %q", res.BlankStrategy)
	}
	want := []string{"5", "1", "2", "5", "5", "3", "4", "5"}
	if got := pdftest.PageLabels(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("pages = %v, want %v", got, want)
	}
}

func TestAssembleOutputMode(t *testing.T) {
	a := &Assembler{Conf: NewConfiguration(), Logger: zerolog.Nop()}
	_, out := assemble(t, a, 4)
	info, err := os.Stat(out)
	if err != nil || info.Mode().Perm() != 0o644 {
		t.Errorf("output stat = %v, %v", info, err)
	}
}

func TestResolveBlankMissingFileIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	next := &stubStrategy{name: "next"}
	strategies := []BlankStrategy{FileBlank{Path: filepath.Join(t.TempDir(), "blank.pdf")}, next}

	_, name := ResolveBlank(context.Background(), logger, strategies, []byte("x"), 3)
	if name != "next" {
		t.Errorf("strategy = %q", name)
	}
	if buf.Len() != 0 {
		t.Errorf("missing blank file logged above debug: %s", buf.String())
	}

	buf.Reset()
	failing := &stubStrategy{name: "broken", err: errors.New("corrupt")}
	ResolveBlank(context.Background(), logger, []BlankStrategy{failing, next}, []byte("x"), 3)
	if !bytes.Contains(buf.Bytes(), []byte(`"level":"warn"`)) {
		t.Errorf("real failure not warned: %q", buf.String())
	}
}

func TestAssembleCancelled(t *testing.T) {
	src := pdftest.Write(t, "src.pdf", 4)
	plan, _ := imposition.NewPlan(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &Assembler{Conf: NewConfiguration(), Logger: zerolog.Nop()}
	if _, err := a.Assemble(ctx, src, plan, filepath.Join(t.TempDir(), "out.pdf")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
