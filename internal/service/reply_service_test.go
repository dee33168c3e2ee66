package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voice-dialogue-demo/backend/ai"
	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyHarness struct {
	*fixture
	gen      *fakeGenerator
	primary  *fakeSynth
	fallback *fakeSynth
	svc      *ReplyService
}

func newReplyHarness(t *testing.T) *replyHarness {
	t.Helper()
	f := newFixture(t)
	f.seedVoices(t)

	h := &replyHarness{
		fixture:  f,
		gen:      &fakeGenerator{reply: "Hello there! 😀"},
		primary:  &fakeSynth{audio: []byte("primary")},
		fallback: &fakeSynth{audio: []byte("fallback")},
	}
	h.svc = h.build(f.turns)
	return h
}

func (h *replyHarness) build(recorder TurnRecorder) *ReplyService {
	return NewReplyService(ReplyDeps{
		Voices:    h.avatars,
		Moods:     h.moods,
		Turns:     recorder,
		Generator: h.gen,
		Primary:   h.primary,
		Fallback:  h.fallback,
		Blobs:     h.blobs,
	}, h.log)
}

func speakRequest() *models.SpeakRequest {
	return &models.SpeakRequest{
		Text:          "Hi!",
		UserVoiceName: "narrator",
		AIVoiceName:   "bot",
	}
}

func TestSpeakRecordsBothTurns(t *testing.T) {
	h := newReplyHarness(t)
	ctx := context.Background()

	resp, err := h.svc.Speak(ctx, h.alice, speakRequest())
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", resp.Reply)
	assert.NotEmpty(t, resp.ConversationID)
	assert.True(t, strings.HasPrefix(resp.UserAudio, "/media/audio/user_"))
	assert.True(t, strings.HasPrefix(resp.AIAudio, "/media/audio/ai_"))
	assert.Equal(t,
		strings.TrimPrefix(resp.UserAudio, "/media/audio/user_"),
		strings.TrimPrefix(resp.AIAudio, "/media/audio/ai_"))

	require.Len(t, h.gen.prompts, 1)
	assert.Equal(t, "Be warm.\nUser: Hi!\nAI:", h.gen.prompts[0])
	assert.Equal(t, ai.ReplySystemPrompt, h.gen.systems[0])
	assert.ElementsMatch(t, []string{"voice-user", "voice-ai"}, h.primary.voices)
	assert.Zero(t, h.fallback.calls())

	transcript, err := h.turns.Replay(ctx, resp.ConversationID, h.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"user": "Hi!"}, {"ai": "Hello there!"}}, transcript.ChatList)
	assert.Equal(t, resp.UserAudio, transcript.AudioList[0]["user"])
	assert.Equal(t, resp.AIAudio, transcript.AudioList[1]["ai"])
}

func TestSpeakContinuesConversation(t *testing.T) {
	h := newReplyHarness(t)
	ctx := context.Background()

	req := speakRequest()
	req.ConversationID = "conv-1"
	req.Mode = "FRIENDLY"

	_, err := h.svc.Speak(ctx, h.alice, req)
	require.NoError(t, err)
	resp, err := h.svc.Speak(ctx, h.alice, req)
	require.NoError(t, err)
	assert.Equal(t, "conv-1", resp.ConversationID)

	transcript, err := h.turns.Replay(ctx, "conv-1", h.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 4, transcript.Len())
	assert.Equal(t, 4, h.blobs.len())
}

func TestSpeakFallsBackWhenPrimaryFails(t *testing.T) {
	h := newReplyHarness(t)
	h.primary.err = errUpstream

	resp, err := h.svc.Speak(context.Background(), h.alice, speakRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, h.primary.calls())
	assert.Equal(t, 2, h.fallback.calls())
	assert.Equal(t, int64(2), h.countTurns(t, models.ActiveOnly))

	transcript, err := h.turns.Replay(context.Background(), resp.ConversationID, h.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, transcript.Len())
}

func TestSpeakFailsWhenBothProvidersFail(t *testing.T) {
	h := newReplyHarness(t)
	h.primary.err = errUpstream
	h.fallback.err = errors.New("connection refused")

	_, err := h.svc.Speak(context.Background(), h.alice, speakRequest())
	pe, ok := ai.AsProviderError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "fallback", pe.Provider)
	assert.Zero(t, h.countTurns(t))
	assert.Zero(t, h.blobs.len())
}

func TestSpeakDoesNotFallBackOnPlainErrors(t *testing.T) {
	h := newReplyHarness(t)
	h.primary.err = context.Canceled

	_, err := h.svc.Speak(context.Background(), h.alice, speakRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.fallback.calls())
	assert.Zero(t, h.countTurns(t))
}

func TestSpeakReplyAsUserRequiresText(t *testing.T) {
	h := newReplyHarness(t)

	req := speakRequest()
	req.ReplyAs = "USER"

	_, err := h.svc.Speak(context.Background(), h.alice, req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reply_text", verr.Field)
	assert.Zero(t, h.countTurns(t))
	assert.Zero(t, h.gen.calls())
	assert.Zero(t, h.primary.calls())
}

func TestSpeakScriptedReply(t *testing.T) {
	h := newReplyHarness(t)

	req := speakRequest()
	req.ReplyAs = "user"
	req.ReplyText = "I'll answer myself ✨"

	resp, err := h.svc.Speak(context.Background(), h.alice, req)
	require.NoError(t, err)
	assert.Equal(t, "I'll answer myself", resp.Reply)
	assert.Zero(t, h.gen.calls())

	req.ReplyText = "🎉🎉"
	_, err = h.svc.Speak(context.Background(), h.alice, req)
	assert.ErrorIs(t, err, ErrReplyTextRequired)
}

func TestSpeakValidation(t *testing.T) {
	h := newReplyHarness(t)

	cases := map[string]func(*models.SpeakRequest){
		"text":            func(r *models.SpeakRequest) { r.Text = " " },
		"user_voice_name": func(r *models.SpeakRequest) { r.UserVoiceName = "" },
		"ai_voice_name":   func(r *models.SpeakRequest) { r.AIVoiceName = "" },
		"reply_as":        func(r *models.SpeakRequest) { r.ReplyAs = "narrator" },
		"sender_type":     func(r *models.SpeakRequest) { r.SenderType = "both" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			req := speakRequest()
			mutate(req)
			_, err := h.svc.Speak(context.Background(), h.alice, req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, field, verr.Field)
		})
	}
	assert.Zero(t, h.countTurns(t))
}

func TestSpeakUnknownSelections(t *testing.T) {
	h := newReplyHarness(t)

	req := speakRequest()
	req.AIVoiceName = "nobody"
	_, err := h.svc.Speak(context.Background(), h.alice, req)
	assert.ErrorIs(t, err, ErrVoiceNotFound)

	req = speakRequest()
	req.UserVoiceName = "bot"
	_, err = h.svc.Speak(context.Background(), h.alice, req)
	assert.ErrorIs(t, err, ErrVoiceNotFound)

	req = speakRequest()
	req.Mode = "grumpy"
	_, err = h.svc.Speak(context.Background(), h.alice, req)
	assert.ErrorIs(t, err, ErrUnknownMode)

	assert.Zero(t, h.gen.calls())
	assert.Zero(t, h.countTurns(t))
}

func TestSpeakGeneratorFailure(t *testing.T) {
	h := newReplyHarness(t)
	h.gen.err = errors.New("quota exceeded")

	_, err := h.svc.Speak(context.Background(), h.alice, speakRequest())
	_, ok := ai.AsProviderError(err)
	assert.True(t, ok)
	assert.Zero(t, h.primary.calls())
	assert.Zero(t, h.countTurns(t))

	h.gen.err = nil
	h.gen.reply = "🙂"
	_, err = h.svc.Speak(context.Background(), h.alice, speakRequest())
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	assert.Zero(t, h.countTurns(t))
}

func TestSpeakSingleSide(t *testing.T) {
	h := newReplyHarness(t)
	ctx := context.Background()

	req := speakRequest()
	req.SenderType = "USER"
	resp, err := h.svc.Speak(ctx, h.alice, req)
	require.NoError(t, err)
	assert.Empty(t, resp.Reply)
	assert.NotEmpty(t, resp.UserAudio)
	assert.Empty(t, resp.AIAudio)
	assert.Zero(t, h.gen.calls())

	req = speakRequest()
	req.SenderType = "ai"
	req.ConversationID = resp.ConversationID
	resp, err = h.svc.Speak(ctx, h.alice, req)
	require.NoError(t, err)
	assert.Empty(t, resp.UserAudio)
	assert.NotEmpty(t, resp.AIAudio)

	transcript, err := h.turns.Replay(ctx, resp.ConversationID, h.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"user": "Hi!"}, {"ai": "Hello there!"}}, transcript.ChatList)
}

func TestSpeakRemovesAudioWhenPersistFails(t *testing.T) {
	h := newReplyHarness(t)
	svc := h.build(failingRecorder{})

	_, err := svc.Speak(context.Background(), h.alice, speakRequest())
	require.Error(t, err)
	assert.Zero(t, h.blobs.len())
	assert.Len(t, h.blobs.deleted, 2)
}

func TestAnalyze(t *testing.T) {
	gen := &fakeGenerator{reply: "  The speaker sounds happy. 😊 "}
	svc := NewAnalysisService(gen, logger.Discard())

	summary, err := svc.Analyze(context.Background(), "I won!")
	require.NoError(t, err)
	assert.Equal(t, "The speaker sounds happy.", summary)
	require.Len(t, gen.prompts, 1)
	assert.True(t, strings.HasSuffix(gen.prompts[0], "Text: I won!"))
	assert.Equal(t, ai.AnalysisSystemPrompt, gen.systems[0])

	_, err = svc.Analyze(context.Background(), "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	gen.err = ai.NewProviderError("openai", 500, errors.New("boom"))
	_, err = svc.Analyze(context.Background(), "again")
	_, ok := ai.AsProviderError(err)
	assert.True(t, ok)
}
