package service

import (
	"context"
	"errors"
	"strings"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/logger"

	"gorm.io/gorm"
)

// ChatHistoryService saves titled snapshots of conversations.
type ChatHistoryService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewChatHistoryService creates the ledger.
func NewChatHistoryService(db *gorm.DB, log *logger.Logger) *ChatHistoryService {
	return &ChatHistoryService{db: db, log: log.With("service", "ChatHistoryService")}
}

// Create freezes the caller's ACTIVE turns of a conversation under title.
// An empty conversation yields an empty snapshot.
func (s *ChatHistoryService) Create(ctx context.Context, actor Actor, req *models.CreateChatHistoryRequest) (*models.ChatHistory, error) {
	title := strings.TrimSpace(req.Title)
	conversationID := strings.TrimSpace(req.ConversationID)
	if title == "" {
		return nil, invalid("title", "title is required")
	}
	if conversationID == "" {
		return nil, ErrConversationIDRequired
	}

	var history models.ChatHistory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := titleFree(tx, title, 0); err != nil {
			return err
		}

		turns, err := activeTurns(tx, conversationID, actor.ownerPtr())
		if err != nil {
			return err
		}
		chat, err := models.SnapshotChat(models.TranscriptFrom(conversationID, turns))
		if err != nil {
			return err
		}

		history = models.ChatHistory{
			Lifecycle:      models.Lifecycle{Status: models.StatusActive},
			Owned:          models.Owned{UserID: actor.ownerPtr()},
			ConversationID: conversationID,
			Title:          title,
			Chat:           chat,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}

	s.log.Info("chat history saved", "uid", history.UID, "conversation_id", conversationID)
	return &history, nil
}

// List returns the caller's ACTIVE histories, newest first.
func (s *ChatHistoryService) List(ctx context.Context, actor Actor) ([]models.ChatHistory, error) {
	var rows []models.ChatHistory
	err := s.db.WithContext(ctx).
		Scopes(models.ActiveOnly, models.OwnedByUser(actor.UserID), models.NewestFirst).
		Find(&rows).Error
	return rows, err
}

// Retrieve returns the saved snapshot together with the live projection of
// the conversation's current ACTIVE turns.
func (s *ChatHistoryService) Retrieve(ctx context.Context, actor Actor, uid string) (*models.ChatHistoryDetail, error) {
	history, err := s.get(ctx, actor, uid)
	if err != nil {
		return nil, err
	}

	turns, err := activeTurns(s.db.WithContext(ctx), history.ConversationID, history.UserID)
	if err != nil {
		return nil, err
	}
	live := models.TranscriptFrom(history.ConversationID, turns)

	return &models.ChatHistoryDetail{
		ChatHistory:    history,
		Title:          history.Title,
		ConversationID: history.ConversationID,
		Snapshot:       history.Chat,
		ChatDict:       live.ChatList,
		AudioDict:      live.AudioList,
	}, nil
}

// Update renames a history or toggles it between ACTIVE and INACTIVE.
func (s *ChatHistoryService) Update(ctx context.Context, actor Actor, uid string, req *models.UpdateChatHistoryRequest) (*models.ChatHistory, error) {
	history, err := s.get(ctx, actor, uid)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Status != nil {
		st, err := parseEditableStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		updates["status"] = st
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return invalid("title", "title is required")
			}
			if title != history.Title {
				if err := titleFree(tx, title, history.ID); err != nil {
					return err
				}
				updates["title"] = title
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(history).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}
	return s.get(ctx, actor, uid)
}

// Delete removes the history and, in the same transaction, every turn of its
// conversation that belongs to the history's owner.
func (s *ChatHistoryService) Delete(ctx context.Context, actor Actor, uid string) error {
	history, err := s.get(ctx, actor, uid)
	if err != nil {
		return err
	}

	var removed int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := models.SoftDelete(tx, &models.ChatHistory{}, byID(history.ID)); err != nil {
			return err
		}
		n, err := removeTurns(tx, history.ConversationID, history.UserID)
		removed = n
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("chat history removed", "uid", uid, "conversation_id", history.ConversationID, "turns_removed", removed)
	return nil
}

func (s *ChatHistoryService) get(ctx context.Context, actor Actor, uid string) (*models.ChatHistory, error) {
	var history models.ChatHistory
	q := s.db.WithContext(ctx).Scopes(models.NotRemoved).Where("uid = ?", uid)
	if !actor.Admin {
		q = q.Scopes(models.OwnedByUser(actor.UserID))
	}
	if err := q.First(&history).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatHistoryNotFound
		}
		return nil, err
	}
	return &history, nil
}

// titleFree checks title uniqueness across every history, removed ones included,
// since the column carries a unique index.
func titleFree(tx *gorm.DB, title string, exceptID uint) error {
	var count int64
	err := tx.Model(&models.ChatHistory{}).
		Where("title = ? AND id <> ?", title, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrTitleTaken
	}
	return nil
}
