package injection

import (
	"cmp"
	"slices"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

// blockPadding separates an injected quote from the surrounding article.
const blockPadding = "\n\n"

// Placement pairs one selected quote with the offset it will be inserted at.
type Placement struct {
	Offset int
	Quote  domain.Quote
}

// Insertion is a fragment to splice into a string at Offset.
type Insertion struct {
	Offset int
	Text   string
}

// MergeResult is the merged article plus the quotes placed in it, in selection order.
type MergeResult struct {
	Content string
	Used    []domain.Quote
}

// Plan spreads quotes evenly across points. The i-th quote goes to
// points[min(i*step, N-1)] with step = N/K, where K = min(len(quotes), N).
// Placements are returned in selection order.
func Plan(points []int, quotes []domain.Quote) []Placement {
	n := len(points)

	k := min(len(quotes), n)
	if k == 0 {
		return nil
	}

	step := n / k
	placements := make([]Placement, k)

	for i := range k {
		placements[i] = Placement{
			Offset: points[min(i*step, n-1)],
			Quote:  quotes[i],
		}
	}

	return placements
}

// Merge inserts the formatted quotes into content at the planned points.
// With no points or no quotes the content is returned unchanged.
func Merge(content string, points []int, quotes []domain.Quote) MergeResult {
	placements := Plan(points, quotes)

	result := MergeResult{Content: content, Used: make([]domain.Quote, 0, len(placements))}
	if len(placements) == 0 {
		return result
	}

	inserts := make([]Insertion, len(placements))
	for i, p := range placements {
		inserts[i] = Insertion{
			Offset: p.Offset,
			Text:   blockPadding + Format(p.Quote) + blockPadding,
		}

		result.Used = append(result.Used, p.Quote)
	}

	result.Content = Splice(content, inserts)

	return result
}

// Splice inserts every fragment at its offset in the original content.
// Insertions are applied from the highest offset down, so each splice only
// shifts bytes to the right of offsets that have already been handled.
// Fragments sharing an offset keep their input order. Offsets outside
// [0, len(content)] are clamped.
func Splice(content string, inserts []Insertion) string {
	if len(inserts) == 0 {
		return content
	}

	order := make([]int, len(inserts))
	for i := range order {
		order[i] = i
	}

	slices.SortFunc(order, func(a, b int) int {
		if c := cmp.Compare(inserts[b].Offset, inserts[a].Offset); c != 0 {
			return c
		}

		return cmp.Compare(b, a)
	})

	out := content
	for _, i := range order {
		at := max(0, min(inserts[i].Offset, len(content)))
		out = out[:at] + inserts[i].Text + out[at:]
	}

	return out
}
