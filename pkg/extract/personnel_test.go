package extract

import (
	"strings"
	"testing"
)

const sampleNarrative = "Procedural Personnel: Resident(s) PGY1-5: Jane Doe\n" +
	"Attending: Dr. John Roe, MD\n" +
	"\n" +
	"Jane Doe Trainee EPA: 4\n" +
	"CT-guided biopsy of the left lower lobe."

func TestPersonnelExcerpt(t *testing.T) {
	t.Run("bounded by blank line", func(t *testing.T) {
		got := PersonnelExcerpt(sampleNarrative)
		if !strings.Contains(got, "Jane Doe") || !strings.Contains(got, "John Roe") {
			t.Errorf("excerpt missing roster names: %q", got)
		}
		if strings.Contains(got, "Trainee EPA") {
			t.Errorf("excerpt crossed the blank line boundary: %q", got)
		}
	})

	t.Run("runs to end of text without blank line", func(t *testing.T) {
		text := "Procedural Personnel:\nAttending: John Roe"
		if got := PersonnelExcerpt(text); got != text {
			t.Errorf("PersonnelExcerpt(%q) = %q, want full text", text, got)
		}
	})

	t.Run("no header", func(t *testing.T) {
		if got := PersonnelExcerpt("CT chest without contrast."); got != "" {
			t.Errorf("PersonnelExcerpt = %q, want empty", got)
		}
	})
}

func TestExtractAttending(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labeled field", sampleNarrative, "John Roe"},
		{
			"multiple attendings",
			"Procedural Personnel:\nAttending: Dr. Alice Smith and Dr. Bob Jones, MD\n\n",
			"Alice Smith; Bob Jones",
		},
		{
			"duplicate attendings collapse",
			"Procedural Personnel:\nAttendings: Dr. Alice Smith; Alice Smith, MD\n\n",
			"Alice Smith",
		},
		{
			"filler value",
			"Procedural Personnel:\nAttending: None\n\n",
			"",
		},
		{
			"advanced practice provider line ignored",
			"Procedural Personnel:\nAdvanced Practice Provider: Carol Reed, PA-C\nAttending: John Roe\n\n",
			"John Roe",
		},
		{
			"value bleeding into epa field",
			"Procedural Personnel:\nAttending: John Roe Trainee EPA: 4\n\n",
			"John Roe",
		},
		{"no personnel section", "CT chest without contrast.", ""},
		{"no attending line", "Procedural Personnel:\nResident(s): Jane Doe\n\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAttending(tt.text); got != tt.want {
				t.Errorf("ExtractAttending = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTrainee(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"same-line roster value", sampleNarrative, "Jane Doe"},
		{
			"next-line roster value",
			"Procedural Personnel:\nResident(s) PGY1-5:\nJane Doe\nAttending: John Roe\n\n",
			"Jane Doe",
		},
		{
			"multiple trainees",
			"Procedural Personnel:\nResident(s): Jane Doe; John Q. Public\n\n",
			"Jane Doe; John Q. Public",
		},
		{
			"roster value bleeding into epa field",
			"Procedural Personnel:\nResident(s): Jane Doe Trainee EPA: 4\n\n",
			"Jane Doe",
		},
		{
			"fallback to pre-score name run",
			"Procedural Personnel:\nJane Doe Trainee EPA: 4\nAttending: John Roe\n\n",
			"Jane Doe",
		},
		{
			"roster label with no value",
			"Procedural Personnel:\nThe Resident Trainee EPA: 4\n\n",
			"",
		},
		{
			"filler value",
			"Procedural Personnel:\nResident(s): none\nAttending: John Roe\n\n",
			"",
		},
		{"no personnel section", "CT chest without contrast.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTrainee(tt.text); got != tt.want {
				t.Errorf("ExtractTrainee = %q, want %q", got, tt.want)
			}
		})
	}
}
