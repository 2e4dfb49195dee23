package sources

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "No tags here", want: "No tags here"},
		{name: "paragraphs", in: "<p>First</p><p>Second</p>", want: "FirstSecond"},
		{name: "nested", in: `<div><a href="x">Link</a> and <em>emphasis</em></div>`, want: "Link and emphasis"},
		{name: "entities", in: "Rights &amp; freedoms", want: "Rights & freedoms"},
		{name: "script removed", in: "<script>alert(1)</script>Text", want: "Text"},
		{name: "escaped tags", in: "Report &lt;script&gt;alert(1)&lt;/script&gt; &lt;b&gt;bold&lt;/b&gt;", want: "Report bold"},
		{name: "escaped inside real markup", in: "<p>See &lt;a href=&quot;x&quot;&gt;link&lt;/a&gt;</p>", want: "See link"},
		{name: "less than in text", in: "5 &lt; 7 votes", want: "5 < 7 votes"},
		{name: "whitespace collapsed", in: "  a \n\n b\t c ", want: "a b c"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.in); got != tt.want {
				t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "short", in: "hello", limit: 10, want: "hello"},
		{name: "exact", in: "hello", limit: 5, want: "hello"},
		{name: "cut", in: "hello world", limit: 5, want: "hello..."},
		{name: "trailing space trimmed", in: "hello world", limit: 6, want: "hello..."},
		{name: "multibyte", in: "жжжжжж", limit: 3, want: "жжж..."},
		{name: "no limit", in: "hello", limit: 0, want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}

func TestTruncate_NormalizesCombiningMarks(t *testing.T) {
	// "e" + combining acute composes to a single rune under NFC
	in := strings.Repeat("e\u0301", 4)
	got := Truncate(in, 4)
	if want := strings.Repeat("\u00e9", 4); got != want {
		t.Errorf("Truncate() = %q, want %q", got, want)
	}
}

func TestCleanDescription_Bound(t *testing.T) {
	in := "<p>" + strings.Repeat("abc ", 200) + "</p>"
	got := CleanDescription(in, 200)

	if n := utf8.RuneCountInString(got); n > 203 {
		t.Errorf("CleanDescription() length = %d, want <= 203", n)
	}
	if strings.ContainsAny(got, "<>") {
		t.Errorf("CleanDescription() kept markup: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("CleanDescription() = %q, want trailing ellipsis", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{name: "proxy layout", in: "2024-05-01 10:30:00", want: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{name: "rfc3339", in: "2024-05-01T10:30:00Z", want: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{name: "rfc1123z", in: "Wed, 01 May 2024 10:30:00 +0000", want: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{name: "empty", in: "", want: now},
		{name: "garbage", in: "yesterday", want: now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTimestamp(tt.in, now); !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewItemID(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	id := NewItemID(now, 3)
	if !strings.HasPrefix(id, "1700000000000-3-") {
		t.Errorf("NewItemID() = %q, want time-index prefix", id)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewItemID(now, 0)
		if seen[id] {
			t.Fatalf("NewItemID() produced duplicate %q", id)
		}
		seen[id] = true
	}
}
