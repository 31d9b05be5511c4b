package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrUnknownEntityKind is returned when an entity kind string is not recognised
var ErrUnknownEntityKind = errors.New("unknown entity kind")

// EntityKind identifies what an aggregate price row was computed for
type EntityKind string

const (
	EntityCollection EntityKind = "collection"
	EntityDeck       EntityKind = "deck"
)

// AllEntityKinds returns every entity kind the aggregation pipeline handles
func AllEntityKinds() []EntityKind {
	return []EntityKind{EntityCollection, EntityDeck}
}

// ParseEntityKind accepts singular and plural forms ("deck", "decks")
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "collection", "collections":
		return EntityCollection, nil
	case "deck", "decks":
		return EntityDeck, nil
	}
	return "", ErrUnknownEntityKind
}

// Collection is a user's set of owned cards
type Collection struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"not null;index"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Public      bool      `json:"public" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"index"`
}

func (c *Collection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Deck is a playable list of cards; its lines use the same shape as collection lines
type Deck struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"not null;index"`
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	Public    bool      `json:"public" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

func (d *Deck) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
