package domain

import (
	"math"
	"strings"
	"time"
)

// Platform identifies the community a quote was collected from.
// Values outside the known set are allowed and render with a generic label.
type Platform string

// Known source platforms.
const (
	PlatformReddit     Platform = "reddit"
	PlatformTwitter    Platform = "twitter"
	PlatformForum      Platform = "forum"
	PlatformQuora      Platform = "quora"
	PlatformHackerNews Platform = "hackernews"
	PlatformLinkedIn   Platform = "linkedin"
	PlatformYouTube    Platform = "youtube"
)

// AnonymousAuthor is shown when a quote has no usable author.
const AnonymousAuthor = "Anonymous"

// placeholderAuthors are author values left behind by deleted or moderated posts.
var placeholderAuthors = map[string]struct{}{
	"[deleted]":   {},
	"[removed]":   {},
	"deleted":     {},
	"removed":     {},
	"u/[deleted]": {},
}

// Quote is a human-authored quote collected from an online community.
// The store owns it; the injection engine reads it and bumps the usage counters.
type Quote struct {
	ID             string
	Text           string
	Author         *string
	SourcePlatform Platform
	SourceURL      *string
	TopicCategory  *string
	RelevanceScore float64
	IsAppropriate  bool
	TimesUsed      int64
	LastUsedAt     *time.Time
}

// Validate checks what every stored quote must satisfy.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return NewValidationError("id", "is required")
	}

	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("quote_text", "must not be empty")
	}

	if math.IsNaN(q.RelevanceScore) || q.RelevanceScore < 0 || q.RelevanceScore > 1 {
		return NewValidationErrorWithValue("relevance_score", "must be between 0 and 1", q.RelevanceScore)
	}

	if q.TimesUsed < 0 {
		return NewValidationErrorWithValue("times_used", "must not be negative", q.TimesUsed)
	}

	return nil
}

// Attribution returns the author to credit, or AnonymousAuthor when the author
// is missing, blank, or a deletion placeholder.
func (q Quote) Attribution() string {
	if q.Author == nil {
		return AnonymousAuthor
	}

	author := strings.TrimSpace(*q.Author)
	if author == "" {
		return AnonymousAuthor
	}

	if _, ok := placeholderAuthors[strings.ToLower(author)]; ok {
		return AnonymousAuthor
	}

	return author
}

// QuoteFilter selects eligible quotes from the store.
// Only appropriate quotes are ever returned, so there is no flag for it.
type QuoteFilter struct {
	TopicCategory *string
	MinRelevance  float64
	Limit         int
}
