package model

import "time"

// Deck is a saved deck owned by one user. Names are unique per owner.
type Deck struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"userId" gorm:"not null;uniqueIndex:idx_decks_user_name,priority:1"`
	Name      string     `json:"name" gorm:"size:50;not null;uniqueIndex:idx_decks_user_name,priority:2"`
	Cards     []DeckCard `json:"-" gorm:"foreignKey:DeckID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// DeckCard is one entry of a deck: an external catalog card id with a copy
// count. Card metadata is not stored.
type DeckCard struct {
	ID      uint `json:"-" gorm:"primaryKey"`
	DeckID  uint `json:"-" gorm:"not null;index"`
	CardID  int  `json:"id" gorm:"not null"`
	Count   int  `json:"count" gorm:"not null"`
	IsExtra bool `json:"isExtra" gorm:"not null;default:false"`
}
