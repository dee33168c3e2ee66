package seed

import (
	"context"
	"strings"
	"testing"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/service"
	"voice-dialogue-demo/backend/pkg/cache"
	"voice-dialogue-demo/backend/pkg/jwt"
	"voice-dialogue-demo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const seedYAML = `
avatars:
  - side: user
    avatar_name: Narrator
    voice_name: narrator
    elevenlabs_voice_id: voice-user
  - side: AI
    avatar_name: Bot
    voice_name: bot
    elevenlabs_voice_id: voice-ai
moods:
  - name: Friendly
    prompt: Be warm and encouraging.
`

func newSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	log := logger.Discard()
	store := cache.New(0, 0)
	tokens := jwt.NewService("access", "refresh", 0, 0)

	return NewSeeder(db,
		service.NewAvatarService(db, store, 0, nil, log),
		service.NewMoodService(db, store, 0, log),
		service.NewUserService(db, tokens, log),
		log,
	), db
}

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(seedYAML))
	require.NoError(t, err)
	assert.Len(t, f.Avatars, 2)
	assert.Equal(t, "voice-ai", f.Avatars[1].ElevenLabsVoiceID)
	require.Len(t, f.Moods, 1)
	assert.Equal(t, "Friendly", f.Moods[0].Name)

	_, err = Parse(strings.NewReader("avatars:\n  - side: robot\n    voice_name: x\n"))
	assert.ErrorContains(t, err, "avatars[0]")

	_, err = Parse(strings.NewReader("moods:\n  - prompt: orphan\n"))
	assert.ErrorContains(t, err, "moods[0]")

	_, err = Parse(strings.NewReader("voices: []\n"))
	assert.Error(t, err)

	f, err = Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Avatars)
}

func TestApplyIsIdempotent(t *testing.T) {
	s, db := newSeeder(t)
	ctx := context.Background()

	f, err := Parse(strings.NewReader(seedYAML))
	require.NoError(t, err)

	res, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Result{AvatarsCreated: 2, MoodsCreated: 1}, res)

	f.Avatars[1].ElevenLabsVoiceID = "voice-ai-v2"
	res, err = s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Result{AvatarsUpdated: 2, MoodsUpdated: 1}, res)

	var avatars []models.Avatar
	require.NoError(t, db.Where("user_id IS NULL").Find(&avatars).Error)
	require.Len(t, avatars, 2)

	var bot models.Avatar
	require.NoError(t, db.Where("voice_name = ?", "bot").First(&bot).Error)
	assert.Equal(t, "voice-ai-v2", bot.ElevenLabsVoiceID)
	assert.Equal(t, models.SideAI, bot.Side)

	var mood models.Mood
	require.NoError(t, db.First(&mood).Error)
	assert.Equal(t, "friendly", mood.MoodName)
	assert.Nil(t, mood.UserID)
}

func TestPromoteAdmin(t *testing.T) {
	s, _ := newSeeder(t)
	ctx := context.Background()

	_, err := s.PromoteAdmin(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = s.users.Register(ctx, &models.RegisterRequest{
		Username: "carol",
		Email:    "Carol@Example.com",
		Password: "long-enough",
	})
	require.NoError(t, err)

	_, err = s.PromoteAdmin(ctx, "carol@example.com")
	assert.ErrorIs(t, err, service.ErrUserNotFound, "local part is case-sensitive")

	user, err := s.PromoteAdmin(ctx, "Carol@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, "Carol@example.com", user.Email)
	assert.Equal(t, string(jwt.RoleAdmin), user.Role)
	assert.True(t, user.IsStaff)
}
