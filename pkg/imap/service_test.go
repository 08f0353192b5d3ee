package imap

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreviewOf(t *testing.T) {
	if got := previewOf("short body"); got != "short body" {
		t.Errorf("previewOf(short) = %q", got)
	}

	long := strings.Repeat("a", 250)
	got := previewOf(long)
	if got != long[:200]+"..." {
		t.Errorf("preview length = %d", len(got))
	}

	// A multibyte rune straddling the 200-byte cut must not be split.
	multi := strings.Repeat("b", 199) + strings.Repeat("é", 10)
	got = previewOf(multi)
	if !utf8.ValidString(got) {
		t.Errorf("preview split a UTF-8 sequence: %q", got[190:])
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long preview missing ellipsis")
	}
}
