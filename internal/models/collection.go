package models

// Condition is the graded state of a physical card, best first
type Condition int

const (
	ConditionMint Condition = iota
	ConditionNearMint
	ConditionExcellent
	ConditionGood
	ConditionLightPlay
	ConditionPlayed
	ConditionPoor
)

// Valid reports whether c is one of the defined grades
func (c Condition) Valid() bool {
	return c >= ConditionMint && c <= ConditionPoor
}

func (c Condition) String() string {
	switch c {
	case ConditionMint:
		return "M"
	case ConditionNearMint:
		return "NM"
	case ConditionExcellent:
		return "EX"
	case ConditionGood:
		return "GD"
	case ConditionLightPlay:
		return "LP"
	case ConditionPlayed:
		return "PL"
	case ConditionPoor:
		return "PR"
	default:
		return "UNKNOWN"
	}
}

// OwnershipLine is one quantity of a specific card variant held by a collection or deck.
// The combination of every field except Quantity and Note identifies the line.
type OwnershipLine struct {
	EntityID  string       `json:"entity_id" gorm:"primaryKey"`
	CardID    string       `json:"card_id" gorm:"primaryKey;index"`
	VariantID string       `json:"variant_id" gorm:"primaryKey"`
	Foil      bool         `json:"foil" gorm:"primaryKey"`
	Condition Condition    `json:"condition" gorm:"primaryKey"`
	Language  CardLanguage `json:"language" gorm:"primaryKey"`
	Quantity  int          `json:"quantity" gorm:"not null;default:1"`
	Note      string       `json:"note"`
}

// CollectionCard is an ownership line stored in collection_cards
type CollectionCard struct {
	OwnershipLine
}

func (CollectionCard) TableName() string { return "collection_cards" }

// DeckCard is an ownership line stored in deck_cards
type DeckCard struct {
	OwnershipLine
}

func (DeckCard) TableName() string { return "deck_cards" }

// AddCardRequest adds (or with a negative quantity, removes) copies of a card variant
type AddCardRequest struct {
	CardID    string       `json:"card_id" binding:"required"`
	VariantID string       `json:"variant_id" binding:"required"`
	Foil      bool         `json:"foil"`
	Condition Condition    `json:"condition"`
	Language  CardLanguage `json:"language"`
	Quantity  int          `json:"quantity"`
	Note      string       `json:"note"`
}

// AddCardResponse reports the line quantity after the change (0 means the line was removed)
type AddCardResponse struct {
	EntityID string `json:"entity_id"`
	Quantity int    `json:"quantity"`
}
