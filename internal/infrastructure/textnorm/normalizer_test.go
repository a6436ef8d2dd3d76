package textnorm

import "testing"

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"tabs and spaces", "hello \t  world", "hello world"},
		{"trims ends", "  hello world \n", "hello world"},
		{"newline between words stays a separator", "Dear Sir,\nI am writing", "Dear Sir, I am writing"},
		{"midword break repaired", "Exper\nience", "Experience"},
		{"midword break with indent", "Educa\n    tion", "Education"},
		{"chained midword breaks", "Ed\nuca\ntion", "Education"},
		{"carriage returns", "Cont\r\nract", "Contract"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		"Exper\nience  and \t Educa\ntion",
		"Dear Sir,\nplease find attached\r\nmy re\nsume.",
		"   already clean text   ",
		"",
		"a\nb\nc d  e",
	}

	for _, sample := range samples {
		once := Normalize(sample)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", sample, once, twice)
		}
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("short", 500); got != "short" {
		t.Fatalf("Excerpt() = %q, want unchanged", got)
	}
	if got := Excerpt("hello world", 5); got != "hello" {
		t.Fatalf("Excerpt() = %q, want %q", got, "hello")
	}
	if got := Excerpt("hello world", 6); got != "hello" {
		t.Fatalf("Excerpt() trailing space not trimmed: %q", got)
	}
	if got := Excerpt("hello", 0); got != "hello" {
		t.Fatalf("Excerpt() with zero limit = %q, want unchanged", got)
	}
}
