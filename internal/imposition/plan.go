// Package imposition computes saddle-stitch booklet page order and renders
// the resulting sheet layout.
package imposition

import (
	"errors"
	"fmt"
)

// PagesPerSheet is the number of page faces on one folded sheet.
const PagesPerSheet = 4

// ErrInvalidPageCount is returned when a document has no pages.
var ErrInvalidPageCount = errors.New("invalid page count")

// Plan is the imposition for one document.
type Plan struct {
	PageCount int   // real pages in the source
	Padded    int   // PageCount rounded up to a multiple of 4
	Order     []int // 0-based indices, len(Order) == Padded
}

// NewPlan pads pageCount and computes the booklet order for it.
func NewPlan(pageCount int) (Plan, error) {
	if pageCount <= 0 {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidPageCount, pageCount)
	}
	padded := Pad(pageCount)
	return Plan{PageCount: pageCount, Padded: padded, Order: Order(padded)}, nil
}

// Blanks returns how many pad slots the plan needs.
func (p Plan) Blanks() int { return p.Padded - p.PageCount }

// IsBlank reports whether idx refers to a pad slot.
func (p Plan) IsBlank(idx int) bool { return idx >= p.PageCount }

// Sheets groups the order into physical sheets.
func (p Plan) Sheets() []Sheet { return Sheets(p.Order) }

// Pad rounds pageCount up to the next multiple of 4. Multiples of 4,
// including 0, are returned unchanged.
func Pad(pageCount int) int {
	if r := pageCount % PagesPerSheet; r != 0 {
		return pageCount + (PagesPerSheet - r)
	}
	return pageCount
}

// Order returns the booklet permutation of [0, padded). padded must be a
// multiple of 4.
//
// Sheet i carries pages padded-2i-1 and 2i on its front, 2i+1 and
// padded-2i-2 on its back.
func Order(padded int) []int {
	order := make([]int, 0, padded)
	for i := 0; i < padded/PagesPerSheet; i++ {
		order = append(order,
			padded-2*i-1,
			2*i,
			2*i+1,
			padded-2*i-2,
		)
	}
	return order
}
