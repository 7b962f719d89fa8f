// Package selection lets the user pick an input PDF from a directory.
package selection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
)

var (
	ErrNotTerminal = errors.New("run in a terminal")
	ErrNoInputDir  = errors.New("input directory missing")
	ErrNoPDFs      = errors.New("no PDFs in input directory")
	ErrCancelled   = errors.New("selection cancelled")
)

// ListPDFs returns the sorted names of *.pdf files directly inside dir.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: create '%s/' and put PDFs in it", ErrNoInputDir, dir)
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: '%s/'", ErrNoPDFs, dir)
	}
	sort.Strings(names)
	return names, nil
}

// Picker chooses one of the listed names.
type Picker interface {
	Pick(label string, names []string) (int, error)
}

// PromptPicker is an arrow-key menu on the terminal.
type PromptPicker struct{}

func (PromptPicker) Pick(label string, names []string) (int, error) {
	p := promptui.Select{Label: label, Items: names, Size: 10}
	idx, _, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
			return -1, ErrCancelled
		}
		return -1, err
	}
	return idx, nil
}

// Selector picks a PDF from Dir.
type Selector struct {
	Dir    string
	Picker Picker
	// IsTerminal reports whether stdin is interactive; defaults to an isatty check.
	IsTerminal func() bool
}

// New returns a Selector with the terminal menu.
func New(dir string) *Selector {
	return &Selector{Dir: dir, Picker: PromptPicker{}}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Select returns the path of the chosen PDF.
func (s *Selector) Select() (string, error) {
	isTerm := s.IsTerminal
	if isTerm == nil {
		isTerm = stdinIsTerminal
	}
	if !isTerm() {
		return "", ErrNotTerminal
	}
	names, err := ListPDFs(s.Dir)
	if err != nil {
		return "", err
	}
	idx, err := s.Picker.Pick("Select PDF (↑↓ Enter)", names)
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(names) {
		return "", ErrCancelled
	}
	return filepath.Join(s.Dir, names[idx]), nil
}
