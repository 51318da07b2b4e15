package injection

import (
	"net/url"
	"strings"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

// PlatformLabel is how a source platform is shown to readers.
type PlatformLabel struct {
	Name string
	Icon string
}

var platformLabels = map[domain.Platform]PlatformLabel{
	domain.PlatformReddit:     {Name: "Reddit", Icon: "🟠"},
	domain.PlatformTwitter:    {Name: "Twitter", Icon: "🐦"},
	domain.PlatformForum:      {Name: "Forum", Icon: "💬"},
	domain.PlatformQuora:      {Name: "Quora", Icon: "❓"},
	domain.PlatformHackerNews: {Name: "Hacker News", Icon: "🔶"},
	domain.PlatformLinkedIn:   {Name: "LinkedIn", Icon: "💼"},
	domain.PlatformYouTube:    {Name: "YouTube", Icon: "▶️"},
}

// genericPlatform is used for platforms missing from the table.
var genericPlatform = PlatformLabel{Name: "Online Community", Icon: "🗨️"}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// Escape escapes &, <, > and " so s is safe in HTML text and double-quoted attributes.
func Escape(s string) string {
	return escaper.Replace(s)
}

// LabelFor resolves the display label for p, never failing.
func LabelFor(p domain.Platform) PlatformLabel {
	key := domain.Platform(strings.ToLower(strings.TrimSpace(string(p))))
	if label, ok := platformLabels[key]; ok {
		return label
	}

	return genericPlatform
}

// Format renders q as a self-contained blockquote. Every interpolated value is
// escaped, so the result is well-formed whatever the quote contains, and the
// same quote always renders to the same bytes.
func Format(q domain.Quote) string {
	label := LabelFor(q.SourcePlatform)

	attribution := Escape(q.Attribution())
	if href, ok := externalURL(q.SourceURL); ok {
		attribution = `<a href="` + Escape(href) + `" target="_blank" rel="noopener noreferrer nofollow">` +
			attribution + `</a>`
	}

	var b strings.Builder

	b.WriteString(`<blockquote class="injected-quote" data-quote-id="`)
	b.WriteString(Escape(q.ID))
	b.WriteString(`" data-platform="`)
	b.WriteString(Escape(string(q.SourcePlatform)))
	b.WriteString("\">\n  <p>")
	b.WriteString(Escape(q.Text))
	b.WriteString("</p>\n  <footer><span class=\"quote-platform-icon\" aria-hidden=\"true\">")
	b.WriteString(label.Icon)
	b.WriteString("</span> — ")
	b.WriteString(attribution)
	b.WriteString(" on ")
	b.WriteString(Escape(label.Name))
	b.WriteString("</footer>\n</blockquote>")

	return b.String()
}

// externalURL accepts only absolute http(s) links; anything else (javascript:,
// data:, relative paths) is dropped and the attribution renders as plain text.
func externalURL(raw *string) (string, bool) {
	if raw == nil {
		return "", false
	}

	s := strings.TrimSpace(*raw)
	if s == "" {
		return "", false
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return s, true
	default:
		return "", false
	}
}
