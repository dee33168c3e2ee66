package service

import (
	"context"
	"fmt"
	"strings"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/logger"

	"gorm.io/gorm"
)

// TurnService stores conversation turns and reconstructs transcripts from them.
type TurnService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewTurnService creates a turn store.
func NewTurnService(db *gorm.DB, log *logger.Logger) *TurnService {
	return &TurnService{db: db, log: log.With("service", "TurnService")}
}

// Record persists turns in one transaction, in slice order. Either every
// turn is written or none is.
func (s *TurnService) Record(ctx context.Context, turns []*models.GeneratedAudio) error {
	if len(turns) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, turn := range turns {
			if !turn.SenderType.Valid() {
				return ErrInvalidSide
			}
			if turn.Status == "" {
				turn.Status = models.StatusActive
			}
			if err := tx.Create(turn).Error; err != nil {
				return fmt.Errorf("record %s turn: %w", turn.SenderType.Key(), err)
			}
		}
		return nil
	})
}

// Turns returns the ACTIVE turns of a conversation owned by ownerID in creation order.
func (s *TurnService) Turns(ctx context.Context, conversationID string, ownerID uint) ([]models.GeneratedAudio, error) {
	return activeTurns(s.db.WithContext(ctx), conversationID, &ownerID)
}

// Replay rebuilds the transcript of a conversation. It only reads.
func (s *TurnService) Replay(ctx context.Context, conversationID string, ownerID uint) (*models.Transcript, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, ErrConversationIDRequired
	}

	turns, err := s.Turns(ctx, conversationID, ownerID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, ErrConversationNotFound
	}
	return models.TranscriptFrom(conversationID, turns), nil
}

func activeTurns(db *gorm.DB, conversationID string, owner *uint) ([]models.GeneratedAudio, error) {
	var turns []models.GeneratedAudio
	err := db.Scopes(models.ActiveOnly, ownerIs(owner), models.Chronological).
		Where("conversation_id = ?", conversationID).
		Find(&turns).Error
	return turns, err
}

// removeTurns soft-deletes every turn of a conversation belonging to owner.
func removeTurns(tx *gorm.DB, conversationID string, owner *uint) (int64, error) {
	return models.SoftDelete(tx, &models.GeneratedAudio{}, ownerIs(owner), func(db *gorm.DB) *gorm.DB {
		return db.Where("conversation_id = ?", conversationID)
	})
}

// ownerIs matches rows with exactly this owner; nil matches owner-less rows.
func ownerIs(owner *uint) func(*gorm.DB) *gorm.DB {
	if owner == nil {
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("user_id IS NULL")
		}
	}
	return models.OwnedByUser(*owner)
}
