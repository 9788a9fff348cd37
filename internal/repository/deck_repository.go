package repository

import (
	"context"

	"gorm.io/gorm"

	"ygodeck/internal/model"
)

// DeckRepository defines deck persistence operations. Every lookup is scoped
// to the owning user.
type DeckRepository interface {
	Create(ctx context.Context, deck *model.Deck) error
	ListByOwner(ctx context.Context, userID uint) ([]model.Deck, error)
	FindByIDAndOwner(ctx context.Context, id, userID uint) (*model.Deck, error)
	ExistsByName(ctx context.Context, userID uint, name string, excludeID uint) (bool, error)
	Update(ctx context.Context, deck *model.Deck) error
	Delete(ctx context.Context, id, userID uint) error
	// Transaction support
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo DeckRepository) error) error
}

type deckRepository struct {
	db *gorm.DB
}

// NewDeckRepository creates a new deck repository.
func NewDeckRepository(db *gorm.DB) DeckRepository {
	return &deckRepository{db: db}
}

// Create inserts the deck row and its card rows in one transaction.
func (r *deckRepository) Create(ctx context.Context, deck *model.Deck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cards := deck.Cards
		if err := tx.Omit("Cards").Create(deck).Error; err != nil {
			return err
		}
		return createCards(tx, deck.ID, cards)
	})
}

// ListByOwner returns the owner's decks with their card rows, newest first.
func (r *deckRepository) ListByOwner(ctx context.Context, userID uint) ([]model.Deck, error) {
	var decks []model.Deck
	if err := r.db.WithContext(ctx).
		Preload("Cards").
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&decks).Error; err != nil {
		return nil, err
	}
	return decks, nil
}

// FindByIDAndOwner returns gorm.ErrRecordNotFound for a deck owned by
// someone else.
func (r *deckRepository) FindByIDAndOwner(ctx context.Context, id, userID uint) (*model.Deck, error) {
	var deck model.Deck
	if err := r.db.WithContext(ctx).
		Preload("Cards", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&deck).Error; err != nil {
		return nil, err
	}
	return &deck, nil
}

func (r *deckRepository) ExistsByName(ctx context.Context, userID uint, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Deck{}).Where("user_id = ? AND name = ?", userID, name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update rewrites the deck row and replaces every card row in one
// transaction. It does not check ownership; load the deck with
// FindByIDAndOwner first.
func (r *deckRepository) Update(ctx context.Context, deck *model.Deck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// MySQL reports changed rows, not matched ones, so an unchanged
		// name may affect zero rows. Callers check ownership first.
		if err := tx.Model(&model.Deck{}).
			Where("id = ? AND user_id = ?", deck.ID, deck.UserID).
			Update("name", deck.Name).Error; err != nil {
			return err
		}
		if err := tx.Where("deck_id = ?", deck.ID).Delete(&model.DeckCard{}).Error; err != nil {
			return err
		}
		return createCards(tx, deck.ID, deck.Cards)
	})
}

// Delete removes the card rows then the deck row in one transaction.
func (r *deckRepository) Delete(ctx context.Context, id, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deck model.Deck
		if err := tx.Select("id").Where("id = ? AND user_id = ?", id, userID).First(&deck).Error; err != nil {
			return err
		}
		if err := tx.Where("deck_id = ?", deck.ID).Delete(&model.DeckCard{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Deck{}, deck.ID).Error
	})
}

// WithTransaction executes a function within a database transaction.
func (r *deckRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo DeckRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &deckRepository{db: tx})
	})
}

func createCards(tx *gorm.DB, deckID uint, cards []model.DeckCard) error {
	if len(cards) == 0 {
		return nil
	}
	for i := range cards {
		cards[i].ID = 0
		cards[i].DeckID = deckID
	}
	return tx.Create(&cards).Error
}
