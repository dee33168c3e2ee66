// Package seed loads global voice profiles and moods from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/service"
	"voice-dialogue-demo/backend/pkg/jwt"
	"voice-dialogue-demo/backend/pkg/logger"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// File is the seed document.
type File struct {
	Avatars []Avatar `yaml:"avatars"`
	Moods   []Mood   `yaml:"moods"`
}

// Avatar is a global voice profile entry.
type Avatar struct {
	Side              string `yaml:"side"`
	AvatarName        string `yaml:"avatar_name"`
	VoiceName         string `yaml:"voice_name"`
	ElevenLabsVoiceID string `yaml:"elevenlabs_voice_id"`
}

// Mood is a global mood entry.
type Mood struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// Result counts what Apply changed.
type Result struct {
	AvatarsCreated int
	AvatarsUpdated int
	MoodsCreated   int
	MoodsUpdated   int
}

// Parse decodes and validates a seed document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	for i, a := range f.Avatars {
		if _, ok := models.ParseSide(a.Side); !ok {
			return nil, fmt.Errorf("avatars[%d]: side must be USER or AI, got %q", i, a.Side)
		}
		if strings.TrimSpace(a.VoiceName) == "" {
			return nil, fmt.Errorf("avatars[%d]: voice_name is required", i)
		}
	}
	for i, m := range f.Moods {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("moods[%d]: name is required", i)
		}
	}
	return &f, nil
}

// Seeder writes seed entries through the registries so caches stay coherent.
type Seeder struct {
	db      *gorm.DB
	avatars *service.AvatarService
	moods   *service.MoodService
	users   *service.UserService
	log     *logger.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(db *gorm.DB, avatars *service.AvatarService, moods *service.MoodService, users *service.UserService, log *logger.Logger) *Seeder {
	return &Seeder{db: db, avatars: avatars, moods: moods, users: users, log: log.With("component", "seed")}
}

// Apply upserts every entry as a global row. Avatars match on voice name and
// side, moods on the normalized name. Running it twice changes nothing new.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	admin := service.Actor{Admin: true}
	var res Result

	for _, a := range f.Avatars {
		side, _ := models.ParseSide(a.Side)
		var existing models.Avatar
		err := s.db.WithContext(ctx).
			Scopes(models.NotRemoved).
			Where("user_id IS NULL AND voice_name = ? AND side = ?", strings.TrimSpace(a.VoiceName), side).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if _, err := s.avatars.Create(ctx, admin, &models.CreateAvatarRequest{
				Side:              string(side),
				AvatarName:        a.AvatarName,
				VoiceName:         a.VoiceName,
				ElevenLabsVoiceID: a.ElevenLabsVoiceID,
				Global:            true,
			}); err != nil {
				return res, fmt.Errorf("create avatar %q: %w", a.VoiceName, err)
			}
			res.AvatarsCreated++
		case err != nil:
			return res, err
		default:
			if _, err := s.avatars.Update(ctx, admin, existing.UID, &models.UpdateAvatarRequest{
				AvatarName:        &a.AvatarName,
				ElevenLabsVoiceID: &a.ElevenLabsVoiceID,
			}); err != nil {
				return res, fmt.Errorf("update avatar %q: %w", a.VoiceName, err)
			}
			res.AvatarsUpdated++
		}
	}

	for _, m := range f.Moods {
		var existing models.Mood
		err := s.db.WithContext(ctx).
			Scopes(models.NotRemoved).
			Where("user_id IS NULL AND mood_name = ?", models.NormalizeMoodName(m.Name)).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if _, err := s.moods.Create(ctx, admin, &models.CreateMoodRequest{
				MoodName:   m.Name,
				MoodPrompt: m.Prompt,
				Global:     true,
			}); err != nil {
				return res, fmt.Errorf("create mood %q: %w", m.Name, err)
			}
			res.MoodsCreated++
		case err != nil:
			return res, err
		default:
			if _, err := s.moods.Update(ctx, admin, existing.UID, &models.UpdateMoodRequest{
				MoodPrompt: &m.Prompt,
			}); err != nil {
				return res, fmt.Errorf("update mood %q: %w", m.Name, err)
			}
			res.MoodsUpdated++
		}
	}

	s.log.Info("seed applied",
		"avatars_created", res.AvatarsCreated,
		"avatars_updated", res.AvatarsUpdated,
		"moods_created", res.MoodsCreated,
		"moods_updated", res.MoodsUpdated,
	)
	return res, nil
}

// PromoteAdmin grants the admin role to the account registered under email.
func (s *Seeder) PromoteAdmin(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Scopes(models.NotRemoved).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrUserNotFound
		}
		return nil, err
	}

	promoted, err := s.users.UpdateRole(ctx, user.ID, jwt.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.log.Info("user promoted to admin", "user_uid", promoted.UID)
	return promoted, nil
}
