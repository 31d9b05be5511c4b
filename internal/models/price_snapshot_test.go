package models

import (
	"testing"
)

func TestDefaultSourceTypes(t *testing.T) {
	sources := DefaultSourceTypes()

	if len(sources) != 2 {
		t.Fatalf("DefaultSourceTypes() returned %d sources, want 2", len(sources))
	}
	if sources[0] != SourceCardmarket || sources[1] != SourceTCGPlayer {
		t.Errorf("DefaultSourceTypes() = %v, want [cardmarket tcgplayer]", sources)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want CardLanguage
	}{
		{"English", LanguageEnglish},
		{"en", LanguageEnglish},
		{"", LanguageEnglish},
		{"German", LanguageGerman},
		{"de", LanguageGerman},
		{"ger", LanguageGerman},
		{"French", LanguageFrench},
		{"FR", LanguageFrench},
		{"Italian", LanguageItalian},
		{"it", LanguageItalian},
		{"es", LanguageSpanish},
		{" Spanish ", LanguageSpanish},
		{"klingon", LanguageEnglish},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseEntityKind(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityKind
		wantErr bool
	}{
		{"collection", EntityCollection, false},
		{"collections", EntityCollection, false},
		{"Deck", EntityDeck, false},
		{"decks", EntityDeck, false},
		{"binder", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseEntityKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEntityKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEntityKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConditionString(t *testing.T) {
	tests := []struct {
		condition Condition
		expected  string
	}{
		{ConditionMint, "M"},
		{ConditionNearMint, "NM"},
		{ConditionLightPlay, "LP"},
		{ConditionPoor, "PR"},
		{Condition(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.condition.String(); got != tt.expected {
			t.Errorf("Condition(%d).String() = %s, want %s", int(tt.condition), got, tt.expected)
		}
	}
}

func TestConditionValid(t *testing.T) {
	tests := []struct {
		condition Condition
		expected  bool
	}{
		{ConditionMint, true},
		{ConditionPoor, true},
		{Condition(-1), false},
		{ConditionPoor + 1, false},
	}

	for _, tt := range tests {
		if got := tt.condition.Valid(); got != tt.expected {
			t.Errorf("Condition(%d).Valid() = %v, want %v", int(tt.condition), got, tt.expected)
		}
	}
}
