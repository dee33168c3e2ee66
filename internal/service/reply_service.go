package service

import (
	"context"
	"fmt"
	"strings"

	"voice-dialogue-demo/backend/ai"
	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/logger"
	"voice-dialogue-demo/backend/pkg/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "voice-dialogue-demo/backend/internal/service"

// VoiceResolver maps a voice label on one side to a voice profile.
type VoiceResolver interface {
	Resolve(ctx context.Context, label string, side models.Side, ownerID uint) (*models.Avatar, error)
}

// MoodResolver maps a mode name to a mood prompt.
type MoodResolver interface {
	Resolve(ctx context.Context, mode string, ownerID uint) (*models.Mood, error)
}

// TurnRecorder persists the turns of one request atomically.
type TurnRecorder interface {
	Record(ctx context.Context, turns []*models.GeneratedAudio) error
}

// ReplyDeps are the collaborators of a ReplyService.
type ReplyDeps struct {
	Voices      VoiceResolver
	Moods       MoodResolver
	Turns       TurnRecorder
	Generator   ai.TextGenerator
	Primary     ai.Synthesizer
	Fallback    ai.Synthesizer
	Blobs       storage.BlobStore
	DefaultMode string
}

// ReplyService turns a user utterance into a recorded exchange: an optional
// generated reply and synthesized audio for each recorded side.
type ReplyService struct {
	deps      ReplyDeps
	log       *logger.Logger
	tracer    trace.Tracer
	fallbacks metric.Int64Counter
}

// NewReplyService creates the orchestrator.
func NewReplyService(deps ReplyDeps, log *logger.Logger) *ReplyService {
	if deps.DefaultMode == "" {
		deps.DefaultMode = "friendly"
	}

	fallbacks, err := otel.Meter(instrumentationName).Int64Counter(
		"tts_fallback_total",
		metric.WithDescription("Speech syntheses served by the fallback provider"),
	)
	if err != nil {
		log.Warn("failed to create fallback counter", "error", err.Error())
		fallbacks = noop.Int64Counter{}
	}

	return &ReplyService{
		deps:      deps,
		log:       log.With("service", "ReplyService"),
		tracer:    otel.Tracer(instrumentationName),
		fallbacks: fallbacks,
	}
}

type speakPlan struct {
	text           string
	mode           string
	conversationID string
	replyAs        models.Side
	replyText      string
	sides          []models.Side
}

func (p *speakPlan) records(side models.Side) bool {
	for _, s := range p.sides {
		if s == side {
			return true
		}
	}
	return false
}

func planSpeak(req *models.SpeakRequest, defaultMode string) (*speakPlan, error) {
	p := &speakPlan{
		text:           strings.TrimSpace(req.Text),
		mode:           strings.TrimSpace(req.Mode),
		conversationID: strings.TrimSpace(req.ConversationID),
		replyAs:        models.SideAI,
		replyText:      req.ReplyText,
		sides:          []models.Side{models.SideUser, models.SideAI},
	}

	if p.text == "" {
		return nil, invalid("text", "text is required")
	}
	if strings.TrimSpace(req.UserVoiceName) == "" {
		return nil, invalid("user_voice_name", "user voice is required")
	}
	if strings.TrimSpace(req.AIVoiceName) == "" {
		return nil, invalid("ai_voice_name", "ai voice is required")
	}
	if p.mode == "" {
		p.mode = defaultMode
	}

	if strings.TrimSpace(req.ReplyAs) != "" {
		side, ok := models.ParseSide(req.ReplyAs)
		if !ok {
			return nil, invalid("reply_as", "reply_as must be USER or AI")
		}
		p.replyAs = side
	}
	if p.replyAs != models.SideAI && strings.TrimSpace(p.replyText) == "" {
		return nil, ErrReplyTextRequired
	}

	if strings.TrimSpace(req.SenderType) != "" {
		side, ok := models.ParseSide(req.SenderType)
		if !ok {
			return nil, invalid("sender_type", "sender_type must be USER or AI")
		}
		p.sides = []models.Side{side}
	}

	if p.conversationID == "" {
		p.conversationID = uuid.NewString()
	}
	return p, nil
}

// Speak runs one exchange. Nothing is persisted unless every step succeeds;
// uploaded audio is removed again if the turns cannot be written.
func (s *ReplyService) Speak(ctx context.Context, actor Actor, req *models.SpeakRequest) (*models.SpeakResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ReplyService.Speak")
	defer span.End()

	resp, err := s.speak(ctx, actor, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation_id", resp.ConversationID))
	return resp, nil
}

func (s *ReplyService) speak(ctx context.Context, actor Actor, req *models.SpeakRequest) (*models.SpeakResponse, error) {
	plan, err := planSpeak(req, s.deps.DefaultMode)
	if err != nil {
		return nil, err
	}
	log := s.log.With("user_id", actor.UserID, "conversation_id", plan.conversationID)

	userVoice, err := s.deps.Voices.Resolve(ctx, req.UserVoiceName, models.SideUser, actor.UserID)
	if err != nil {
		return nil, err
	}
	aiVoice, err := s.deps.Voices.Resolve(ctx, req.AIVoiceName, models.SideAI, actor.UserID)
	if err != nil {
		return nil, err
	}
	mood, err := s.deps.Moods.Resolve(ctx, plan.mode, actor.UserID)
	if err != nil {
		return nil, err
	}

	var reply string
	if plan.records(models.SideAI) {
		reply, err = s.reply(ctx, plan, mood)
		if err != nil {
			return nil, err
		}
	}

	spoken := map[models.Side]string{models.SideUser: plan.text, models.SideAI: reply}
	voices := map[models.Side]string{
		models.SideUser: userVoice.ElevenLabsVoiceID,
		models.SideAI:   aiVoice.ElevenLabsVoiceID,
	}
	audioID := strings.ReplaceAll(uuid.NewString(), "-", "")

	refs := make([]string, len(plan.sides))
	keys := make([]string, len(plan.sides))
	g, gctx := errgroup.WithContext(ctx)
	for i, side := range plan.sides {
		g.Go(func() error {
			audio, err := s.synthesize(gctx, side, spoken[side], voices[side])
			if err != nil {
				return err
			}
			key := models.AudioKey(side, audioID)
			ref, err := s.deps.Blobs.Put(gctx, key, audio)
			if err != nil {
				return fmt.Errorf("store %s audio: %w", side.Key(), err)
			}
			keys[i], refs[i] = key, ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, keys)
		return nil, err
	}

	owner := actor.ownerPtr()
	turns := make([]*models.GeneratedAudio, len(plan.sides))
	for i, side := range plan.sides {
		turns[i] = &models.GeneratedAudio{
			Lifecycle:      models.Lifecycle{Status: models.StatusActive},
			Owned:          models.Owned{UserID: owner},
			ConversationID: plan.conversationID,
			Text:           spoken[side],
			Audio:          refs[i],
			SenderType:     side,
		}
	}
	if err := s.deps.Turns.Record(ctx, turns); err != nil {
		s.discard(ctx, keys)
		return nil, fmt.Errorf("persist turns: %w", err)
	}

	log.Info("exchange recorded", "turns", len(turns), "reply_as", plan.replyAs)

	resp := &models.SpeakResponse{Reply: reply, ConversationID: plan.conversationID}
	for i, side := range plan.sides {
		if side == models.SideUser {
			resp.UserAudio = refs[i]
		} else {
			resp.AIAudio = refs[i]
		}
	}
	return resp, nil
}

// reply generates or takes the scripted AI line, cleaned for synthesis.
func (s *ReplyService) reply(ctx context.Context, plan *speakPlan, mood *models.Mood) (string, error) {
	if plan.replyAs != models.SideAI {
		reply := strings.TrimSpace(ai.CleanText(plan.replyText))
		if reply == "" {
			return "", ErrReplyTextRequired
		}
		return reply, nil
	}

	prompt := fmt.Sprintf("%s\nUser: %s\nAI:", mood.MoodPrompt, plan.text)

	ctx, span := s.tracer.Start(ctx, "ReplyService.generate")
	defer span.End()

	out, err := s.deps.Generator.Generate(ctx, ai.ReplySystemPrompt, prompt)
	if err != nil {
		span.RecordError(err)
		if _, ok := ai.AsProviderError(err); ok {
			return "", err
		}
		return "", ai.NewProviderError("generator", 0, err)
	}

	reply := strings.TrimSpace(ai.CleanText(out))
	if reply == "" {
		return "", ai.NewProviderError("generator", 0, ai.ErrEmptyResponse)
	}
	return reply, nil
}

// synthesize tries the primary provider and falls back on a provider failure.
func (s *ReplyService) synthesize(ctx context.Context, side models.Side, text, voiceID string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "ReplyService.synthesize",
		trace.WithAttributes(attribute.String("side", side.Key())))
	defer span.End()

	if s.deps.Primary != nil {
		audio, err := s.deps.Primary.Synthesize(ctx, text, voiceID)
		if err == nil {
			return audio, nil
		}
		pe, ok := ai.AsProviderError(err)
		if !ok {
			span.RecordError(err)
			return nil, err
		}
		s.log.Warn("primary speech provider failed, using fallback",
			"side", side.Key(), "provider", pe.Provider, "status", pe.StatusCode, "timeout", pe.Timeout())
	}

	span.SetAttributes(attribute.Bool("fallback", true))
	s.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("side", side.Key())))

	audio, err := s.deps.Fallback.Synthesize(ctx, text, voiceID)
	if err != nil {
		span.RecordError(err)
		if _, ok := ai.AsProviderError(err); ok {
			return nil, err
		}
		return nil, ai.NewProviderError("fallback", 0, err)
	}
	return audio, nil
}

func (s *ReplyService) discard(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.deps.Blobs.Delete(ctx, key); err != nil {
			s.log.LogError(err, "failed to remove orphaned audio", "key", key)
		}
	}
}
