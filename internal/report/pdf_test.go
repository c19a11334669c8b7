package report

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateOnRuneBoundaries(t *testing.T) {
	in := strings.Repeat("é", 40)
	got := truncate(in, 10)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("é", 7)+"..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if short := truncate("plain", 40); short != "plain" {
		t.Fatalf("short input must pass through, got %q", short)
	}
}
