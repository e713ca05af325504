package captioner

import (
	"testing"

	"github.com/mkarlsen/keepsake/internal/models"
)

func TestParseSuggestion(t *testing.T) {
	s, err := parseSuggestion(`{"mood": "happy", "caption": "A sunny afternoon at the park."}`)
	if err != nil {
		t.Fatalf("parseSuggestion: %v", err)
	}
	if s.Mood != models.MoodHappy {
		t.Errorf("mood = %q", s.Mood)
	}
	if s.Note != "A sunny afternoon at the park." {
		t.Errorf("note = %q", s.Note)
	}
}

func TestParseSuggestionFenced(t *testing.T) {
	s, err := parseSuggestion("```json\n{\"mood\": \"milestone\", \"caption\": \"First steps!\"}\n```")
	if err != nil {
		t.Fatalf("parseSuggestion: %v", err)
	}
	if s.Mood != models.MoodMilestone || s.Note != "First steps!" {
		t.Errorf("suggestion = %+v", s)
	}
}

func TestParseSuggestionUnknownMoodDropped(t *testing.T) {
	s, err := parseSuggestion(`{"mood": "ecstatic", "caption": "x"}`)
	if err != nil {
		t.Fatal(err)
	}
	if s.Mood != "" {
		t.Errorf("unknown mood kept: %q", s.Mood)
	}
}

func TestParseSuggestionGarbage(t *testing.T) {
	if _, err := parseSuggestion("I cannot help with that."); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewDisabledWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c != nil {
		t.Error("expected nil client without api key")
	}
}
