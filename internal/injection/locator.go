// Package injection implements the quote injection engine: finding safe
// insertion points in article HTML, choosing quotes from the candidate pool,
// rendering them, and splicing them into the article.
//
// Everything here except Selector is pure string processing with no I/O.
package injection

import (
	"strings"

	"golang.org/x/net/html"
)

// linesPerBlock is how many lines the plain-text fallback treats as one block.
const linesPerBlock = 3

// Locate returns the byte offsets in content where a block-level quote can be
// inserted without breaking markup. Offsets are strictly increasing and lie in
// [0, len(content)]. An empty result means there is no room to inject.
//
// Offsets follow every closing </p> tag. Content without paragraph markup falls
// back to an offset after every third line.
func Locate(content string) []int {
	if points := paragraphEnds(content); len(points) > 0 {
		return points
	}

	return lineBlockEnds(content)
}

// paragraphEnds tokenizes content so that "</p>" inside script, style, or
// comments is not treated as a paragraph boundary.
func paragraphEnds(content string) []int {
	var points []int

	z := html.NewTokenizer(strings.NewReader(content))
	offset := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return points
		}

		offset += len(z.Raw())

		if tt != html.EndTagToken {
			continue
		}

		if name, _ := z.TagName(); string(name) == "p" {
			points = append(points, offset)
		}
	}
}

func lineBlockEnds(content string) []int {
	var points []int

	offset := 0
	for i, line := range strings.SplitAfter(content, "\n") {
		offset += len(line)

		if (i+1)%linesPerBlock != 0 {
			continue
		}

		if len(points) > 0 && offset <= points[len(points)-1] {
			continue
		}

		points = append(points, offset)
	}

	return points
}
