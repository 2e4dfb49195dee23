package sources

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const ellipsis = "..."

// pubDate layouts seen from the feed-to-JSON endpoint and raw RSS/Atom.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// maxMarkupPasses bounds how many times entity-escaped markup is re-parsed.
const maxMarkupPasses = 3

var leftoverTag = regexp.MustCompile(`<[^>]*>`)

// StripMarkup removes every tag from s and returns the collapsed text content.
// Markup that only appears after entity decoding (&lt;b&gt;) is stripped too.
func StripMarkup(s string) string {
	for i := 0; i < maxMarkupPasses && strings.ContainsAny(s, "<&"); i++ {
		text, ok := markupText(s)
		if !ok || text == s {
			break
		}
		s = text
	}
	return collapseSpace(leftoverTag.ReplaceAllString(s, " "))
}

func markupText(s string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", false
	}
	doc.Find("script, style").Remove()
	return doc.Text(), true
}

// Truncate cuts s to limit runes and appends an ellipsis when it was cut.
func Truncate(s string, limit int) string {
	s = norm.NFC.String(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:limit]), isSpace) + ellipsis
}

// CleanDescription strips markup and truncates to limit.
func CleanDescription(s string, limit int) string {
	return Truncate(StripMarkup(s), limit)
}

// ParseTimestamp parses a publish date, falling back to now.
func ParseTimestamp(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

// NewItemID builds an id from the fetch time and the item's position.
// The random suffix keeps ids from different rounds in the same
// millisecond apart.
func NewItemID(now time.Time, index int) string {
	return fmt.Sprintf("%d-%d-%s", now.UnixMilli(), index, uuid.NewString()[:8])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
