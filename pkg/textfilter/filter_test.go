package textfilter

import (
	"strings"
	"testing"
)

func TestScrubber_Scrub(t *testing.T) {
	s := NewScrubber()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "toned swap keeps the sentence readable",
			input:    "Kael mutters a damn curse as the alarm clock ticks again.",
			expected: "Kael mutters a dang curse as the alarm clock ticks again.",
		},
		{
			name:     "multiple hits in one narration",
			input:    "The hell-gate opens. Mira spits: this whole plan is bullshit.",
			expected: "The heck-gate opens. Mira spits: this whole plan is voidrot.",
		},
		{
			name:     "all caps carried onto the stand-in",
			input:    "DAMN the wardens and their clocks!",
			expected: "DANG the wardens and their clocks!",
		},
		{
			name:     "leading capital carried onto the stand-in",
			input:    "Hell opens beneath the reactor floor.",
			expected: "Heck opens beneath the reactor floor.",
		},
		{
			name:     "whole words only",
			input:    "The assassin passes the glass shrine unchallenged.",
			expected: "The assassin passes the glass shrine unchallenged.",
		},
		{
			name:     "genre slang for the hard words",
			input:    "The husk is fragile but fuck, it hits hard.",
			expected: "The husk is fragile but frag, it hits hard.",
		},
		{
			name:     "insults become wretch",
			input:    "That bastard of a broker sold the route to the wardens.",
			expected: "That wretch of a broker sold the route to the wardens.",
		},
		{
			name:     "clean narration unchanged",
			input:    "The void recedes and the bond steadies her hand.",
			expected: "The void recedes and the bond steadies her hand.",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Scrub(tt.input); got != tt.expected {
				t.Errorf("Scrub() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestScrubber_RedactsSlurs(t *testing.T) {
	s := NewScrubber()

	got := s.Scrub("The guard snarls: get moving, you whore.")
	if strings.Contains(got, "whore") {
		t.Errorf("Scrub() left a redacted term in %q", got)
	}
	if !strings.Contains(got, scrubbedPlaceholder) {
		t.Errorf("Scrub() = %q, want the placeholder in place of the term", got)
	}
}

func TestScrubber_Contains(t *testing.T) {
	s := NewScrubber()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"toned word", "What the hell is behind that door?", true},
		{"redacted word", "The slut at the counter", true},
		{"case insensitive", "HELL no.", true},
		{"clean narration", "The clock fills and the wall gives way.", false},
		{"whole words only", "classical approaches to the ritual", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Contains(tt.input); got != tt.expected {
				t.Errorf("Contains(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestScrubber_ScrubbedOutputIsClean(t *testing.T) {
	s := NewScrubber()

	narration := "Damn, the extraction went to hell. Some bastard tripped the alarm and the whole damn district heard it."
	if !s.Contains(narration) {
		t.Fatal("sample narration should flag before scrubbing")
	}
	scrubbed := s.Scrub(narration)
	if s.Contains(scrubbed) {
		t.Errorf("scrubbed narration still flags: %q", scrubbed)
	}
}
