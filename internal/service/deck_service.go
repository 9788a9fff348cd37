package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"ygodeck/internal/deck"
	apperrors "ygodeck/internal/errors"
	"ygodeck/internal/metrics"
	"ygodeck/internal/model"
	"ygodeck/internal/repository"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// DeckDetail is a saved deck with its entries split by section.
type DeckDetail struct {
	ID        uint         `json:"id"`
	Name      string       `json:"name"`
	UserID    uint         `json:"userId"`
	MainDeck  []deck.Entry `json:"mainDeck"`
	ExtraDeck []deck.Entry `json:"extraDeck"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// DeckSummary is a list row annotated with section totals.
type DeckSummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	MainCount   int       `json:"mainCount"`
	ExtraCount  int       `json:"extraCount"`
	MainUnique  int       `json:"mainUnique"`
	ExtraUnique int       `json:"extraUnique"`
}

// DeckService handles deck operations. Every call is scoped to the owner.
type DeckService interface {
	Create(ctx context.Context, userID uint, sub deck.Submission) (*DeckDetail, error)
	List(ctx context.Context, userID uint) ([]DeckSummary, error)
	Get(ctx context.Context, userID, id uint) (*DeckDetail, error)
	Update(ctx context.Context, userID, id uint, sub deck.Submission) (*DeckDetail, error)
	Delete(ctx context.Context, userID, id uint) error
	ExportYDK(ctx context.Context, userID, id uint) (name, content string, err error)
	ExportQR(ctx context.Context, userID, id uint, size int) ([]byte, error)
	ImportYDK(ctx context.Context, userID uint, name string, r io.Reader) (*DeckDetail, error)
}

type deckService struct {
	repo repository.DeckRepository
}

// NewDeckService creates a new deck service.
func NewDeckService(repo repository.DeckRepository) DeckService {
	return &deckService{repo: repo}
}

// validate runs the shared rule set and records the failing rule.
func validate(sub deck.Submission) error {
	err := deck.Validate(sub)
	var ve *deck.ValidationError
	if errors.As(err, &ve) {
		metrics.DeckValidationFailures.WithLabelValues(string(ve.FirstRule())).Inc()
	}
	return err
}

// Create validates the submission and stores it. Banlist status is not
// re-checked here.
func (s *deckService) Create(ctx context.Context, userID uint, sub deck.Submission) (*DeckDetail, error) {
	if err := validate(sub); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(sub.Name)

	taken, err := s.repo.ExistsByName(ctx, userID, name, 0)
	if err != nil {
		return nil, fmt.Errorf("check deck name: %w", err)
	}
	if taken {
		return nil, apperrors.ErrDeckNameTaken
	}

	record := &model.Deck{
		UserID: userID,
		Name:   name,
		Cards:  toRows(sub),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDeckNameTaken
		}
		return nil, fmt.Errorf("create deck: %w", err)
	}
	return toDetail(record), nil
}

// List returns the owner's decks with computed totals.
func (s *deckService) List(ctx context.Context, userID uint) ([]DeckSummary, error) {
	decks, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}

	out := make([]DeckSummary, 0, len(decks))
	for i := range decks {
		detail := toDetail(&decks[i])
		mainCount, mainUnique := deck.Totals(detail.MainDeck)
		extraCount, extraUnique := deck.Totals(detail.ExtraDeck)
		out = append(out, DeckSummary{
			ID:          detail.ID,
			Name:        detail.Name,
			CreatedAt:   detail.CreatedAt,
			UpdatedAt:   detail.UpdatedAt,
			MainCount:   mainCount,
			ExtraCount:  extraCount,
			MainUnique:  mainUnique,
			ExtraUnique: extraUnique,
		})
	}
	return out, nil
}

// Get returns ErrDeckNotFound for missing decks and for decks owned by
// someone else alike.
func (s *deckService) Get(ctx context.Context, userID, id uint) (*DeckDetail, error) {
	record, err := s.repo.FindByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return toDetail(record), nil
}

// Update replaces the name and the whole entry set in one transaction.
func (s *deckService) Update(ctx context.Context, userID, id uint, sub deck.Submission) (*DeckDetail, error) {
	if err := validate(sub); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(sub.Name)

	var updated *model.Deck
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.DeckRepository) error {
		existing, err := repo.FindByIDAndOwner(ctx, id, userID)
		if err != nil {
			return notFound(err)
		}

		taken, err := repo.ExistsByName(ctx, userID, name, id)
		if err != nil {
			return fmt.Errorf("check deck name: %w", err)
		}
		if taken {
			return apperrors.ErrDeckNameTaken
		}

		existing.Name = name
		existing.Cards = toRows(sub)
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, apperrors.ErrDeckNameTaken
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.ErrDeckNotFound
		case errors.Is(err, apperrors.ErrDeckNotFound), errors.Is(err, apperrors.ErrDeckNameTaken):
			return nil, err
		}
		return nil, fmt.Errorf("update deck: %w", err)
	}

	updated.UpdatedAt = time.Now()
	return toDetail(updated), nil
}

// Delete removes the deck and its entries.
func (s *deckService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return notFound(err)
	}
	return nil
}

// ExportYDK renders the deck in the .ydk format used by simulators.
func (s *deckService) ExportYDK(ctx context.Context, userID, id uint) (string, string, error) {
	detail, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", "", err
	}
	return detail.Name, deck.EncodeYDK(detail.MainDeck, detail.ExtraDeck), nil
}

// ExportQR encodes the deck's ydke:// URI as a PNG QR code.
func (s *deckService) ExportQR(ctx context.Context, userID, id uint, size int) ([]byte, error) {
	detail, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultQRSize
	}
	size = min(size, maxQRSize)

	png, err := qrcode.Encode(deck.EncodeYDKE(detail.MainDeck, detail.ExtraDeck), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// ImportYDK parses a .ydk file and saves it through Create.
func (s *deckService) ImportYDK(ctx context.Context, userID uint, name string, r io.Reader) (*DeckDetail, error) {
	main, extra, err := deck.ParseYDK(r)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, userID, deck.Submission{Name: name, Main: main, Extra: extra})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrDeckNotFound
	}
	if errors.Is(err, apperrors.ErrDeckNotFound) {
		return err
	}
	return fmt.Errorf("load deck: %w", err)
}

func toRows(sub deck.Submission) []model.DeckCard {
	rows := make([]model.DeckCard, 0, len(sub.Main)+len(sub.Extra))
	for _, e := range sub.Main {
		rows = append(rows, model.DeckCard{CardID: e.ID, Count: e.Count})
	}
	for _, e := range sub.Extra {
		rows = append(rows, model.DeckCard{CardID: e.ID, Count: e.Count, IsExtra: true})
	}
	return rows
}

func toDetail(d *model.Deck) *DeckDetail {
	detail := &DeckDetail{
		ID:        d.ID,
		Name:      d.Name,
		UserID:    d.UserID,
		MainDeck:  []deck.Entry{},
		ExtraDeck: []deck.Entry{},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, c := range d.Cards {
		entry := deck.Entry{ID: c.CardID, Count: c.Count}
		if c.IsExtra {
			detail.ExtraDeck = append(detail.ExtraDeck, entry)
		} else {
			detail.MainDeck = append(detail.MainDeck, entry)
		}
	}
	return detail
}
