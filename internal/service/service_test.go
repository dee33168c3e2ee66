package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voice-dialogue-demo/backend/ai"
	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/cache"
	"voice-dialogue-demo/backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

type fixture struct {
	db       *gorm.DB
	avatars  *AvatarService
	moods    *MoodService
	turns    *TurnService
	history  *ChatHistoryService
	blobs    *memBlobs
	cache    *cache.Cache
	log      *logger.Logger
	admin    Actor
	alice    Actor
	bob      Actor
	aliceID  uint
	friendly *models.Mood
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	log := logger.Discard()
	c := cache.New(0, 0)
	t.Cleanup(c.Close)

	f := &fixture{
		db:      db,
		blobs:   newMemBlobs(),
		cache:   c,
		log:     log,
		admin:   Actor{UserID: 99, Admin: true},
		alice:   Actor{UserID: 1},
		bob:     Actor{UserID: 2},
		aliceID: 1,
	}
	f.avatars = NewAvatarService(db, c, time.Minute, f.blobs, log)
	f.moods = NewMoodService(db, c, time.Minute, log)
	f.turns = NewTurnService(db, log)
	f.history = NewChatHistoryService(db, log)
	return f
}

// seedVoices creates global voices "narrator" (USER) and "bot" (AI) plus a default mood.
func (f *fixture) seedVoices(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.avatars.Create(ctx, f.admin, &models.CreateAvatarRequest{
		Side: "USER", VoiceName: "narrator", ElevenLabsVoiceID: "voice-user", Global: true,
	})
	require.NoError(t, err)
	_, err = f.avatars.Create(ctx, f.admin, &models.CreateAvatarRequest{
		Side: "AI", VoiceName: "bot", ElevenLabsVoiceID: "voice-ai", Global: true,
	})
	require.NoError(t, err)

	f.friendly, err = f.moods.Create(ctx, f.admin, &models.CreateMoodRequest{
		MoodName: "Friendly", MoodPrompt: "Be warm.", Global: true,
	})
	require.NoError(t, err)
}

func (f *fixture) countTurns(t *testing.T, scopes ...func(*gorm.DB) *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.GeneratedAudio{}).Scopes(scopes...).Count(&n).Error)
	return n
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (m *memBlobs) Put(_ context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "/media/" + key, nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memBlobs) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	systems []string
}

func (g *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.systems = append(g.systems, system)
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type fakeSynth struct {
	mu     sync.Mutex
	audio  []byte
	err    error
	voices []string
}

func (s *fakeSynth) Synthesize(_ context.Context, _ string, voiceID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = append(s.voices, voiceID)
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

func (s *fakeSynth) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, []*models.GeneratedAudio) error {
	return errors.New("database is locked")
}

var errUpstream = ai.NewProviderError("elevenlabs", 503, errors.New("service unavailable"))
