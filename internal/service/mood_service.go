package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/cache"
	"voice-dialogue-demo/backend/pkg/logger"

	"gorm.io/gorm"
)

// MoodService is the mood prompt registry.
type MoodService struct {
	db       *gorm.DB
	cache    cache.Store
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewMoodService creates the registry. cacheTTL <= 0 disables list caching.
func NewMoodService(db *gorm.DB, store cache.Store, cacheTTL time.Duration, log *logger.Logger) *MoodService {
	if store == nil || cacheTTL <= 0 {
		store = cache.Noop{}
	}
	return &MoodService{db: db, cache: store, cacheTTL: cacheTTL, log: log.With("service", "MoodService")}
}

// Resolve returns the most recent ACTIVE mood named mode, ignoring case.
// The caller's own moods take precedence over global ones.
func (s *MoodService) Resolve(ctx context.Context, mode string, ownerID uint) (*models.Mood, error) {
	var mood models.Mood
	err := s.db.WithContext(ctx).
		Scopes(models.ActiveOnly, models.OwnerOrGlobal(ownerID)).
		Where("mood_name = ?", models.NormalizeMoodName(mode)).
		Order(ownerFirst).
		First(&mood).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
		}
		return nil, err
	}
	return &mood, nil
}

// Create registers a mood. Global moods require an admin.
func (s *MoodService) Create(ctx context.Context, actor Actor, req *models.CreateMoodRequest) (*models.Mood, error) {
	if req.Global && !actor.Admin {
		return nil, ErrForbidden
	}
	if models.NormalizeMoodName(req.MoodName) == "" {
		return nil, invalid("mood_name", "mood name is required")
	}

	mood := models.Mood{
		Lifecycle:  models.Lifecycle{Status: models.StatusActive},
		MoodName:   req.MoodName,
		MoodPrompt: strings.TrimSpace(req.MoodPrompt),
	}
	if !req.Global {
		mood.UserID = actor.ownerPtr()
	}

	if err := s.db.WithContext(ctx).Create(&mood).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, mood.UserID)
	return &mood, nil
}

// List returns ACTIVE moods owned by the caller plus global ones, newest first.
func (s *MoodService) List(ctx context.Context, actor Actor) ([]models.Mood, error) {
	own, err := s.listScope(ctx, actor.ownerPtr())
	if err != nil {
		return nil, err
	}
	global, err := s.listScope(ctx, nil)
	if err != nil {
		return nil, err
	}

	all := append(own, global...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func (s *MoodService) listScope(ctx context.Context, owner *uint) ([]models.Mood, error) {
	key := "moods:" + ownerKey(owner)

	var rows []models.Mood
	if hit, err := cache.GetJSON(ctx, s.cache, key, &rows); err == nil && hit {
		return rows, nil
	} else if err != nil {
		s.log.Warn("mood cache read failed", "key", key, "error", err.Error())
	}

	q := s.db.WithContext(ctx).Scopes(models.ActiveOnly, models.NewestFirst)
	if owner == nil {
		q = q.Where("user_id IS NULL")
	} else {
		q = q.Scopes(models.OwnedByUser(*owner))
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.cache, key, rows, s.cacheTTL); err != nil {
		s.log.Warn("mood cache write failed", "key", key, "error", err.Error())
	}
	return rows, nil
}

// Get returns an ACTIVE or INACTIVE mood visible to the caller.
func (s *MoodService) Get(ctx context.Context, actor Actor, uid string) (*models.Mood, error) {
	var mood models.Mood
	err := s.db.WithContext(ctx).
		Scopes(models.NotRemoved, models.OwnerOrGlobal(actor.UserID)).
		Where("uid = ?", uid).
		First(&mood).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMoodNotFound
		}
		return nil, err
	}
	return &mood, nil
}

// Update applies a partial update.
func (s *MoodService) Update(ctx context.Context, actor Actor, uid string, req *models.UpdateMoodRequest) (*models.Mood, error) {
	mood, err := s.editable(ctx, actor, uid)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.MoodName != nil {
		name := models.NormalizeMoodName(*req.MoodName)
		if name == "" {
			return nil, invalid("mood_name", "mood name is required")
		}
		updates["mood_name"] = name
	}
	if req.MoodPrompt != nil {
		updates["mood_prompt"] = strings.TrimSpace(*req.MoodPrompt)
	}
	if req.Status != nil {
		st, err := parseEditableStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		updates["status"] = st
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(mood).Updates(updates).Error; err != nil {
			return nil, err
		}
		s.invalidate(ctx, mood.UserID)
	}
	return s.Get(ctx, actor, uid)
}

// Delete soft-deletes the mood.
func (s *MoodService) Delete(ctx context.Context, actor Actor, uid string) error {
	mood, err := s.editable(ctx, actor, uid)
	if err != nil {
		return err
	}
	if _, err := models.SoftDelete(s.db.WithContext(ctx), &models.Mood{}, byID(mood.ID)); err != nil {
		return err
	}
	s.invalidate(ctx, mood.UserID)
	return nil
}

func (s *MoodService) editable(ctx context.Context, actor Actor, uid string) (*models.Mood, error) {
	mood, err := s.Get(ctx, actor, uid)
	if err != nil {
		return nil, err
	}
	if !actor.canModify(mood.Owned) {
		return nil, ErrForbidden
	}
	return mood, nil
}

func (s *MoodService) invalidate(ctx context.Context, owner *uint) {
	key := "moods:" + ownerKey(owner)
	if err := s.cache.Del(ctx, key); err != nil {
		s.log.Warn("mood cache invalidation failed", "key", key, "error", err.Error())
	}
}
