// Package pdftest builds small, valid PDF fixtures for tests and reads
// back which fixture page ended up where.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Blank is the label PageLabels reports for a page without a fixture label.
const Blank = "blank"

// Size is a page size in points.
type Size struct{ W, H int }

// A5 portrait, rounded to whole points.
var A5 = Size{W: 420, H: 595}

// Build returns a PDF with n pages of the given size. Each page draws
// "(Page k)" with its 1-based number k so pages are distinguishable.
func Build(n int, size Size) []byte {
	return build(n, size, true)
}

// BuildBlank returns a one-page PDF whose page has an empty content stream.
func BuildBlank(size Size) []byte {
	return build(1, size, false)
}

func build(n int, size Size, labeled bool) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// 1: catalog, 2: pages, 3: font, then page/content pairs.
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i := 0; i < n; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			size.W, size.H, 5+2*i))
		content := ""
		if labeled {
			content = fmt.Sprintf("BT /F1 24 Tf 40 40 Td (Page %d) Tj ET", i+1)
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Write stores an n-page A5 fixture named name in a temp dir and returns its path.
func Write(t testing.TB, name string, n int) string {
	t.Helper()
	return WriteTo(t, filepath.Join(t.TempDir(), name), n)
}

// WriteTo stores an n-page A5 fixture at path.
func WriteTo(t testing.TB, path string, n int) string {
	t.Helper()
	if err := os.WriteFile(path, Build(n, A5), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// WriteBlank stores a one-page unlabeled A5 fixture in a temp dir.
func WriteBlank(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, BuildBlank(A5), 0o644); err != nil {
		t.Fatalf("write blank fixture: %v", err)
	}
	return path
}

var (
	pageLabel   = regexp.MustCompile(`\(Page (\d+)\)`)
	contentFile = regexp.MustCompile(`_page_(\d+)\.txt$`)
)

// PageLabels extracts the content of every page of the PDF at path and
// returns the fixture number drawn on each, in page order. Pages without
// a label (or without content) read Blank.
func PageLabels(t testing.TB, path string) []string {
	t.Helper()
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCountFile(path)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	dir := t.TempDir()
	if err := api.ExtractContentFile(path, dir, nil, conf); err != nil {
		t.Fatalf("extract content: %v", err)
	}

	labels := make([]string, n)
	for i := range labels {
		labels[i] = Blank
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		m := contentFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		nr, _ := strconv.Atoi(m[1])
		if nr < 1 || nr > n {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if lm := pageLabel.FindSubmatch(data); lm != nil {
			labels[nr-1] = string(lm[1])
		}
	}
	return labels
}

// PageSizes returns the width and height of every page, in points.
func PageSizes(t testing.TB, path string) []Size {
	t.Helper()
	api.DisableConfigDir()
	dims, err := api.PageDimsFile(path)
	if err != nil {
		t.Fatalf("page dims: %v", err)
	}
	sizes := make([]Size, len(dims))
	for i, d := range dims {
		sizes[i] = Size{W: int(d.Width + 0.5), H: int(d.Height + 0.5)}
	}
	return sizes
}
