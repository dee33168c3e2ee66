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
	"voice-dialogue-demo/backend/pkg/storage"

	"gorm.io/gorm"
)

// ownerFirst sorts a caller's own rows ahead of global rows, newest first within each group.
const ownerFirst = "CASE WHEN user_id IS NULL THEN 1 ELSE 0 END, created_at DESC, id DESC"

// AvatarService is the voice profile registry.
type AvatarService struct {
	db       *gorm.DB
	cache    cache.Store
	cacheTTL time.Duration
	blobs    storage.BlobStore
	log      *logger.Logger
}

// NewAvatarService creates the registry. cacheTTL <= 0 disables list caching.
func NewAvatarService(db *gorm.DB, store cache.Store, cacheTTL time.Duration, blobs storage.BlobStore, log *logger.Logger) *AvatarService {
	if store == nil || cacheTTL <= 0 {
		store = cache.Noop{}
	}
	return &AvatarService{db: db, cache: store, cacheTTL: cacheTTL, blobs: blobs, log: log.With("service", "AvatarService")}
}

// Resolve finds the ACTIVE voice profile named label on side. The caller's
// own profiles win over global ones and the most recent profile wins a tie.
func (s *AvatarService) Resolve(ctx context.Context, label string, side models.Side, ownerID uint) (*models.Avatar, error) {
	var avatar models.Avatar
	err := s.db.WithContext(ctx).
		Scopes(models.ActiveOnly, models.OwnerOrGlobal(ownerID)).
		Where("voice_name = ? AND side = ?", strings.TrimSpace(label), side).
		Order(ownerFirst).
		First(&avatar).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s voice %q", ErrVoiceNotFound, side.Key(), label)
		}
		return nil, err
	}
	return &avatar, nil
}

// Create registers a voice profile. Global profiles require an admin.
func (s *AvatarService) Create(ctx context.Context, actor Actor, req *models.CreateAvatarRequest) (*models.Avatar, error) {
	side, ok := models.ParseSide(req.Side)
	if !ok {
		return nil, ErrInvalidSide
	}
	if req.Global && !actor.Admin {
		return nil, ErrForbidden
	}

	avatar := models.Avatar{
		Lifecycle:         models.Lifecycle{Status: models.StatusActive},
		Side:              side,
		AvatarName:        strings.TrimSpace(req.AvatarName),
		VoiceName:         strings.TrimSpace(req.VoiceName),
		ElevenLabsVoiceID: strings.TrimSpace(req.ElevenLabsVoiceID),
	}
	if !req.Global {
		avatar.UserID = actor.ownerPtr()
	}

	if err := s.db.WithContext(ctx).Create(&avatar).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, avatar.UserID)
	return &avatar, nil
}

// List returns ACTIVE profiles owned by the caller plus global ones, newest first.
func (s *AvatarService) List(ctx context.Context, actor Actor) ([]models.Avatar, error) {
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

func (s *AvatarService) listScope(ctx context.Context, owner *uint) ([]models.Avatar, error) {
	key := "avatars:" + ownerKey(owner)

	var rows []models.Avatar
	if hit, err := cache.GetJSON(ctx, s.cache, key, &rows); err == nil && hit {
		return rows, nil
	} else if err != nil {
		s.log.Warn("avatar cache read failed", "key", key, "error", err.Error())
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
		s.log.Warn("avatar cache write failed", "key", key, "error", err.Error())
	}
	return rows, nil
}

// Get returns an ACTIVE or INACTIVE profile visible to the caller.
func (s *AvatarService) Get(ctx context.Context, actor Actor, uid string) (*models.Avatar, error) {
	var avatar models.Avatar
	err := s.db.WithContext(ctx).
		Scopes(models.NotRemoved, models.OwnerOrGlobal(actor.UserID)).
		Where("uid = ?", uid).
		First(&avatar).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAvatarNotFound
		}
		return nil, err
	}
	return &avatar, nil
}

// Update applies a partial update.
func (s *AvatarService) Update(ctx context.Context, actor Actor, uid string, req *models.UpdateAvatarRequest) (*models.Avatar, error) {
	avatar, err := s.editable(ctx, actor, uid)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Side != nil {
		side, ok := models.ParseSide(*req.Side)
		if !ok {
			return nil, ErrInvalidSide
		}
		updates["side"] = side
	}
	if req.AvatarName != nil {
		updates["avatar_name"] = strings.TrimSpace(*req.AvatarName)
	}
	if req.VoiceName != nil {
		updates["voice_name"] = strings.TrimSpace(*req.VoiceName)
	}
	if req.ElevenLabsVoiceID != nil {
		updates["elevenlabs_voice_id"] = strings.TrimSpace(*req.ElevenLabsVoiceID)
	}
	if req.Status != nil {
		st, err := parseEditableStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		updates["status"] = st
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(avatar).Updates(updates).Error; err != nil {
			return nil, err
		}
		s.invalidate(ctx, avatar.UserID)
	}
	return s.Get(ctx, actor, uid)
}

// Delete soft-deletes the profile. Turns that used it are untouched.
func (s *AvatarService) Delete(ctx context.Context, actor Actor, uid string) error {
	avatar, err := s.editable(ctx, actor, uid)
	if err != nil {
		return err
	}
	if _, err := models.SoftDelete(s.db.WithContext(ctx), &models.Avatar{}, byID(avatar.ID)); err != nil {
		return err
	}
	s.invalidate(ctx, avatar.UserID)
	return nil
}

// AttachVideo stores a demo video under video/{user|ai}/{avatar uid}/ and links it.
func (s *AvatarService) AttachVideo(ctx context.Context, actor Actor, uid, filename string, data []byte) (*models.Avatar, error) {
	avatar, err := s.editable(ctx, actor, uid)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, invalid("video", "a non-empty video file is required")
	}
	key, ok := avatar.VideoKey(filename)
	if !ok {
		return nil, invalid("video", "the video file needs a name")
	}

	ref, err := s.blobs.Put(ctx, key, data)
	if err != nil {
		return nil, fmt.Errorf("store avatar video: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(avatar).Update("video", ref).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, avatar.UserID)
	return s.Get(ctx, actor, uid)
}

func (s *AvatarService) editable(ctx context.Context, actor Actor, uid string) (*models.Avatar, error) {
	avatar, err := s.Get(ctx, actor, uid)
	if err != nil {
		return nil, err
	}
	if !actor.canModify(avatar.Owned) {
		return nil, ErrForbidden
	}
	return avatar, nil
}

func (s *AvatarService) invalidate(ctx context.Context, owner *uint) {
	key := "avatars:" + ownerKey(owner)
	if err := s.cache.Del(ctx, key); err != nil {
		s.log.Warn("avatar cache invalidation failed", "key", key, "error", err.Error())
	}
}

func byID(id uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}
