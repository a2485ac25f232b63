package heuristic

import (
	"fmt"
	"strings"

	"github.com/pantrytrack/receipt-parser/internal/common"
)

// CandidateItem is one candidate purchase reconstructed from a contiguous
// run of tagged lines. PriceCandidates preserves source order so the price
// selector can apply last-wins precedence.
type CandidateItem struct {
	Code            string
	RawName         string
	PriceCandidates []int64 // cents, source order
	Department      string
	StartLine       int
	EndLine         int
}

// Resolvable reports whether the item closed with at least one price.
func (c CandidateItem) Resolvable() bool {
	return len(c.PriceCandidates) > 0
}

type resolveState int

const (
	seekingItem resolveState = iota
	inItem
	resolveDone
)

// ResolveItems walks the tagged lines and groups them into candidate items.
//
// A CODE_NAME line opens an item; while an item is open, category headers
// are absorbed and price lines accumulate; the next CODE_NAME line, a
// SUBTOTAL/TOTAL line, or end of input closes it. An item that closes with
// no price is dropped with a note rather than silently ignored; that is
// the guard against a neighbor's lines contaminating the current item.
func ResolveItems(lines []RawLine) ([]CandidateItem, []string) {
	var (
		items   []CandidateItem
		notes   []string
		current *CandidateItem
		state   = seekingItem
	)

	closeCurrent := func() {
		if current == nil {
			return
		}
		if current.Resolvable() {
			items = append(items, *current)
		} else {
			notes = append(notes, fmt.Sprintf(
				"dropped item %q (lines %d-%d): no price candidates",
				current.RawName, current.StartLine, current.EndLine))
		}
		current = nil
	}

	for _, line := range lines {
		if state == resolveDone {
			break
		}

		switch {
		case line.Has(TagCodeName):
			closeCurrent()
			code, name, ok := SplitCodeName(line.Text)
			if !ok {
				notes = append(notes, fmt.Sprintf("line %d: CODE_NAME tag but unsplittable text", line.Index))
				state = seekingItem
				continue
			}
			current = &CandidateItem{
				Code:      code,
				RawName:   name,
				StartLine: line.Index,
				EndLine:   line.Index,
			}
			state = inItem

		case line.Has(TagSubtotal) || line.Has(TagTotal):
			closeCurrent()
			state = resolveDone

		case state == inItem && line.Has(TagDepartment):
			if current.Department == "" {
				current.Department = normalizedDepartment(line.Text)
			}
			current.EndLine = line.Index

		case state == inItem && line.Has(TagPrice):
			cents, _, ok := PriceCents(line.Text)
			if !ok {
				notes = append(notes, fmt.Sprintf("line %d: PRICE tag but unparsable amount %q", line.Index, line.Text))
				continue
			}
			if line.Has(TagDiscount) && cents > 0 {
				// ambiguous markdown printed without a trailing minus;
				// keep it as a candidate and let last-wins decide
				notes = append(notes, fmt.Sprintf("line %d: discount line without trailing minus: %s",
					line.Index, common.FormatCents(cents)))
			}
			current.PriceCandidates = append(current.PriceCandidates, cents)
			current.EndLine = line.Index
		}
	}
	closeCurrent()
	return items, notes
}

func normalizedDepartment(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
