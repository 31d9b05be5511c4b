package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceType identifies an external market data provider
type SourceType string

const (
	SourceCardmarket SourceType = "cardmarket"
	SourceTCGPlayer  SourceType = "tcgplayer"
)

// DefaultSourceTypes returns the providers every entity is expected to have an aggregate row for,
// in stable order
func DefaultSourceTypes() []SourceType {
	return []SourceType{
		SourceCardmarket,
		SourceTCGPlayer,
	}
}

// CardLanguage is the printed language code of a card
type CardLanguage string

const (
	LanguageEnglish CardLanguage = "EN"
	LanguageGerman  CardLanguage = "DE"
	LanguageFrench  CardLanguage = "FR"
	LanguageItalian CardLanguage = "IT"
	LanguageSpanish CardLanguage = "ES"
)

// AllCardLanguages returns all supported card languages
func AllCardLanguages() []CardLanguage {
	return []CardLanguage{
		LanguageEnglish,
		LanguageGerman,
		LanguageFrench,
		LanguageItalian,
		LanguageSpanish,
	}
}

// NormalizeLanguage maps various language string formats to our CardLanguage type.
// Returns LanguageEnglish as default for unknown/empty values.
func NormalizeLanguage(lang string) CardLanguage {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "german", "de", "deu", "ger":
		return LanguageGerman
	case "french", "fr", "fra", "fre":
		return LanguageFrench
	case "italian", "it", "ita":
		return LanguageItalian
	case "spanish", "es", "esp", "spa":
		return LanguageSpanish
	default:
		return LanguageEnglish
	}
}

// PriceSnapshot is the latest market price of one card variant from one source.
// Rows are written by the market ingestion job; the aggregation pipeline only reads them.
//
// Data holds the raw JSON breakdown of sub-metrics, e.g. {"trend": 1.2, "avg30": null}.
// A key with a null value is known to the source but currently unavailable.
type PriceSnapshot struct {
	CardID     string              `json:"card_id" gorm:"primaryKey"`
	VariantID  string              `json:"variant_id" gorm:"primaryKey"`
	SourceType SourceType          `json:"source_type" gorm:"primaryKey"`
	Price      decimal.NullDecimal `json:"price" gorm:"type:text"`
	Data       string              `json:"data" gorm:"type:text"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (PriceSnapshot) TableName() string { return "card_variant_prices" }
