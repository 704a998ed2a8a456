package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"copium-tutor/internal/model"
)

type DeckRepository struct {
	db *gorm.DB
}

func NewDeckRepository(db *gorm.DB) *DeckRepository {
	return &DeckRepository{db: db}
}

// CreateWithCards writes the deck and its cards in one transaction.
func (r *DeckRepository) CreateWithCards(deck *model.Deck, cards []model.Card) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(deck).Error; err != nil {
			return err
		}
		if len(cards) == 0 {
			return nil
		}
		return tx.Create(&cards).Error
	})
	if err != nil {
		return fmt.Errorf("create deck failed: %w", err)
	}
	return nil
}

func (r *DeckRepository) GetByIDAndUserID(id, userID string) (*model.Deck, error) {
	var deck model.Deck
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&deck).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deck failed: %w", err)
	}
	return &deck, nil
}

func (r *DeckRepository) ListCards(deckID string) ([]model.Card, error) {
	var cards []model.Card
	if err := r.db.Where("deck_id = ?", deckID).Order("position ASC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list cards failed: %w", err)
	}
	return cards, nil
}

func (r *DeckRepository) ListByProjectID(projectID, userID string) ([]model.Deck, error) {
	var decks []model.Deck
	err := r.db.
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Order("created_at DESC").
		Find(&decks).Error
	if err != nil {
		return nil, fmt.Errorf("list decks failed: %w", err)
	}
	return decks, nil
}

func (r *DeckRepository) ListByUserID(userID string) ([]model.Deck, error) {
	var decks []model.Deck
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&decks).Error; err != nil {
		return nil, fmt.Errorf("list decks failed: %w", err)
	}
	return decks, nil
}

// DeleteWithCards removes the deck and its cards in one transaction. It
// reports whether the deck existed for the user.
func (r *DeckRepository) DeleteWithCards(id, userID string) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Deck{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		if !deleted {
			return nil
		}
		return tx.Where("deck_id = ?", id).Delete(&model.Card{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete deck failed: %w", err)
	}
	return deleted, nil
}

// AppendCard stores card after the deck's last card and sets its Position.
func (r *DeckRepository) AppendCard(card *model.Card) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var last sql.NullInt64
		if err := tx.Model(&model.Card{}).
			Where("deck_id = ?", card.DeckID).
			Select("MAX(position)").
			Row().Scan(&last); err != nil {
			return err
		}
		card.Position = 0
		if last.Valid {
			card.Position = int(last.Int64) + 1
		}
		return tx.Create(card).Error
	})
	if err != nil {
		return fmt.Errorf("append card failed: %w", err)
	}
	return nil
}

// DeleteCard removes a card from one of the user's decks. It reports whether
// such a card existed.
func (r *DeckRepository) DeleteCard(cardID, userID string) (bool, error) {
	owned := r.db.Model(&model.Deck{}).Select("id").Where("user_id = ?", userID)
	res := r.db.Where("id = ? AND deck_id IN (?)", cardID, owned).Delete(&model.Card{})
	if res.Error != nil {
		return false, fmt.Errorf("delete card failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
