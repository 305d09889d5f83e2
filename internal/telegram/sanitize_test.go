package telegram

import "testing"

func TestSanitizeEscapesReservedChars(t *testing.T) {
	cases := map[string]string{
		"hello":        "hello",
		"a_b":          "a\\_b",
		"1.2-3!":       "1\\.2\\-3\\!",
		"(test)":       "\\(test\\)",
		"no*markup*":   "no\\*markup\\*",
		"Санкт-Петербург": "Санкт\\-Петербург",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeEmptyString(t *testing.T) {
	if got := Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}
