package utils

import (
	"regexp"
	"testing"
)

var aliasCharset = regexp.MustCompile(`^[a-z0-9.]*$`)

func TestCleanChannelName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "spaces and case",
			input:    "Test Channel",
			expected: "testchannel",
		},
		{
			name:     "trim spaces",
			input:    "  RTL 2  ",
			expected: "rtl2",
		},
		{
			name:     "dots are kept",
			input:    "JOJ.Plus",
			expected: "joj.plus",
		},
		{
			name:     "diacritics folded",
			input:    "Markíza HD",
			expected: "markizahd",
		},
		{
			name:     "caron and brackets",
			input:    "ČT1 (SK)",
			expected: "ct1sk",
		},
		{
			name:     "symbols dropped",
			input:    "Nova+ & Sport-2",
			expected: "novasport2",
		},
		{
			name:     "underscores dropped",
			input:    "Channel_Name_123",
			expected: "channelname123",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanChannelName(tt.input)
			if result != tt.expected {
				t.Errorf("CleanChannelName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCleanChannelNameProperties(t *testing.T) {
	inputs := []string{
		"Test Channel",
		"Šport TV 1 HD",
		"Dajto",
		"  TA3 ",
		"Ľudia & Zvieratá",
		"日本 TV 7",
		"Discovery.Science",
		"\tMTV\n",
	}

	for _, input := range inputs {
		first := CleanChannelName(input)
		if first != CleanChannelName(input) {
			t.Errorf("CleanChannelName(%q) is not deterministic", input)
		}
		if again := CleanChannelName(first); again != first {
			t.Errorf("CleanChannelName not idempotent for %q: %q then %q", input, first, again)
		}
		if !aliasCharset.MatchString(first) {
			t.Errorf("CleanChannelName(%q) = %q contains characters outside [a-z0-9.]", input, first)
		}
	}
}

func TestPiconCandidates(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "multi word title",
			input:    "Test Channel",
			expected: []string{"testchannel.png", "Test_Channel.png"},
		},
		{
			name:     "single lowercase word collapses",
			input:    "dajto",
			expected: []string{"dajto.png"},
		},
		{
			name:     "diacritics keep raw variants",
			input:    "Markíza HD",
			expected: []string{"markizahd.png", "Markíza_HD.png", "markízahd.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PiconCandidates(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("PiconCandidates(%q) = %v, want %v", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("PiconCandidates(%q)[%d] = %q, want %q", tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestLogoFileName(t *testing.T) {
	if got := LogoFileName("Test Channel"); got != "testchannel.png" {
		t.Errorf("LogoFileName() = %q, want %q", got, "testchannel.png")
	}
}
