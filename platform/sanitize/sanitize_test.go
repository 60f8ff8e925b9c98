package sanitize

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	cases := map[string]string{
		"  Ana   López ":                        "Ana López",
		"<b>Acme</b>\n\tS.A.":                   "Acme S.A.",
		"&lt;script&gt;alert(1)&lt;/script&gt;": "alert(1)",
		"Tom &amp; Jerry":                       "Tom & Jerry",
		"":                                      "",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Errorf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextTruncatesRunes(t *testing.T) {
	in := strings.Repeat("ñ", MaxFieldLength+20)
	got := Text(in)
	if n := len([]rune(got)); n != MaxFieldLength {
		t.Fatalf("rune length = %d, want %d", n, MaxFieldLength)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Panamá", 6); got != "Panamá" {
		t.Fatalf("Truncate() = %q", got)
	}
	if got := Truncate("Panamá", 5); got != "Panam" {
		t.Fatalf("Truncate() = %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("Truncate() = %q", got)
	}
}
