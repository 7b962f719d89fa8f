package booklet

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/booklet/internal/assembly"
	"github.com/local/booklet/internal/config"
	"github.com/local/booklet/internal/filetype"
	"github.com/local/booklet/internal/pdftest"
	"github.com/local/booklet/internal/storage"
)

type fakePublisher struct {
	path string
	meta storage.BookletMeta
	err  error
}

func (f *fakePublisher) Upload(ctx context.Context, p string, meta storage.BookletMeta) (string, error) {
	f.path, f.meta = p, meta
	if f.err != nil {
		return "", f.err
	}
	return "s3://prints/" + filepath.Base(p), nil
}

type fakeRecorder struct {
	pages, output, blanks int
	strategies            []string
	runErr                error
	runs                  int
}

func (f *fakeRecorder) ObserveSource(p int) { f.pages = p }
func (f *fakeRecorder) ObserveOutput(pages, blanks int) { f.output, f.blanks = pages, blanks }
func (f *fakeRecorder) IncBlankStrategy(s string) { f.strategies = append(f.strategies, s) }
func (f *fakeRecorder) ObserveRun(err error, _ time.Duration) { f.runErr, f.runs = err, f.runs+1 }

func newRunner(t *testing.T, deps Dependencies) (*Runner, *bytes.Buffer, config.PathsConfig) {
	t.Helper()
	paths := config.PathsConfig{
		OutputDir:    filepath.Join(t.TempDir(), "output"),
		OutputSuffix: "_booklet",
		BlankFile:    filepath.Join(t.TempDir(), "blank.pdf"),
	}
	deps.Logger = zerolog.Nop()
	var out bytes.Buffer
	return New(paths, deps, &out), &out, paths
}

func TestRunWritesLayoutAndBooklet(t *testing.T) {
	src := pdftest.Write(t, "zine.pdf", 5)
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	r, out, paths := newRunner(t, Dependencies{Metrics: rec, Publisher: pub})

	rep, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantPath := filepath.Join(paths.OutputDir, "zine_booklet.pdf")
	if rep.Output.Path != wantPath || rep.Output.Pages != 8 {
		t.Errorf("output = %+v", rep.Output)
	}
	b := pdftest.Blank
	wantPages := []string{b, "1", "2", b, b, "3", "4", "5"}
	if got := pdftest.PageLabels(t, wantPath); !reflect.DeepEqual(got, wantPages) {
		t.Errorf("booklet pages = %v, want %v", got, wantPages)
	}

	text := out.String()
	if !strings.HasPrefix(text, "sheet  front L  front R  back L  back R\n") {
		t.Errorf("layout header missing:\n%s", text)
	}
	if strings.Count(text, "blank") != 3 {
		t.Errorf("want 3 blank cells:\n%s", text)
	}
	if !strings.Contains(text, "Saved: "+wantPath+"  (8 pages)") {
		t.Errorf("summary missing:\n%s", text)
	}
	if !strings.Contains(text, "Uploaded: s3://prints/zine_booklet.pdf") {
		t.Errorf("upload line missing:\n%s", text)
	}

	if rec.pages != 5 || rec.output != 8 || rec.blanks != 3 || rec.runs != 1 || rec.runErr != nil {
		t.Errorf("recorder = %+v", rec)
	}
	if !reflect.DeepEqual(rec.strategies, []string{assembly.StrategyDivider}) {
		t.Errorf("strategies = %v", rec.strategies)
	}
	if pub.meta.SourceName != "zine.pdf" || pub.meta.Padded != 8 {
		t.Errorf("publish meta = %+v", pub.meta)
	}
	if rep.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRunExactMultipleHasNoBlanks(t *testing.T) {
	rec := &fakeRecorder{}
	r, out, _ := newRunner(t, Dependencies{Metrics: rec})
	rep, err := r.Run(context.Background(), pdftest.Write(t, "four.pdf", 4))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Output.BlankStrategy != assembly.StrategyNone || len(rec.strategies) != 0 {
		t.Errorf("strategy = %q, recorded %v", rep.Output.BlankStrategy, rec.strategies)
	}
	if strings.Contains(out.String(), "blank") {
		t.Errorf("unexpected blank:\n%s", out.String())
	}
}

func TestRunRejectsNonPDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(p, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecorder{}
	r, out, _ := newRunner(t, Dependencies{Metrics: rec})
	_, err := r.Run(context.Background(), p)
	if !errors.Is(err, filetype.ErrNotPDF) {
		t.Errorf("err = %v, want ErrNotPDF", err)
	}
	if out.Len() != 0 {
		t.Errorf("no layout expected, got %q", out.String())
	}
	if rec.runErr == nil {
		t.Error("failed run not recorded")
	}
}

func TestRunFailedAssemblyCountsNoOutput(t *testing.T) {
	rec := &fakeRecorder{}
	r, _, paths := newRunner(t, Dependencies{Metrics: rec})
	// A regular file where the output directory should be.
	if err := os.WriteFile(paths.OutputDir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(context.Background(), pdftest.Write(t, "zine.pdf", 5)); err == nil {
		t.Fatal("expected error")
	}
	if rec.pages != 5 || rec.output != 0 || rec.blanks != 0 || len(rec.strategies) != 0 {
		t.Errorf("recorder = %+v", rec)
	}
	if rec.runErr == nil || rec.runs != 1 {
		t.Errorf("failed run not recorded: %+v", rec)
	}
}

func TestRunMissingFile(t *testing.T) {
	r, _, _ := newRunner(t, Dependencies{})
	if _, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "gone.pdf")); err == nil {
		t.Error("expected error")
	}
}

func TestRunPublishError(t *testing.T) {
	r, _, _ := newRunner(t, Dependencies{Publisher: &fakePublisher{err: errors.New("denied")}})
	if _, err := r.Run(context.Background(), pdftest.Write(t, "x.pdf", 2)); err == nil {
		t.Error("expected publish error")
	}
}

func TestOutputPath(t *testing.T) {
	r := New(config.PathsConfig{OutputDir: "output", OutputSuffix: "_booklet"}, Dependencies{}, &bytes.Buffer{})
	if got := r.OutputPath("Annual Report.v2.pdf"); got != filepath.Join("output", "Annual Report.v2_booklet.pdf") {
		t.Errorf("OutputPath = %q", got)
	}
}
