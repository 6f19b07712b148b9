package services

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"plain text untouched", "left the keys under the mat", 100, "left the keys under the mat"},
		{"tags stripped", "this is <b>urgent</b>", 100, "this is urgent"},
		{"script dropped with contents", "<script>alert(1)</script>done", 100, "done"},
		{"event handler dropped", `<img src=x onerror=alert(1)>photo attached`, 100, "photo attached"},
		{"whitespace trimmed", "  padded  ", 100, "padded"},
		{"empty", "", 100, ""},
		{"only markup becomes empty", "<div><span></span></div>", 100, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.in, tt.limit); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_Truncates(t *testing.T) {
	long := strings.Repeat("a", ReasonMaxLen+50)
	got := SanitizeText(long, ReasonMaxLen)
	if len(got) != ReasonMaxLen {
		t.Errorf("length: got %d, want %d", len(got), ReasonMaxLen)
	}

	// Truncation counts runes, not bytes.
	wide := strings.Repeat("ふ", 10)
	if got := SanitizeText(wide, 4); got != strings.Repeat("ふ", 4) {
		t.Errorf("rune truncation: got %q", got)
	}
}
