package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senyas/internal/models"
	"senyas/internal/service/ai"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestHandleMessageValidTypes(t *testing.T) {
	for _, typ := range []models.MessageType{models.MessageText, models.MessageVoice, models.MessageVideo} {
		t.Run(string(typ), func(t *testing.T) {
			gen := &stubGenerator{reply: "Hi there"}
			svc := NewService(gen)

			resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{Message: "hello", Type: typ})
			require.NoError(t, err)
			assert.Equal(t, &models.ChatResponse{Response: "Hi there", Type: models.MessageText}, resp)
			// voice and video are pass-through for now
			assert.Equal(t, []string{"hello"}, gen.prompts)
		})
	}
}

func TestHandleMessageInvalidType(t *testing.T) {
	for _, typ := range []models.MessageType{"", "sms", "TEXT", "image", " text"} {
		gen := &stubGenerator{reply: "unused"}
		svc := NewService(gen)

		resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{Message: "hi", Type: typ})
		assert.ErrorIs(t, err, ErrInvalidMessageType, "type %q", typ)
		assert.Nil(t, resp)
		assert.Empty(t, gen.prompts, "no generation for type %q", typ)
	}
}

func TestHandleMessageChannelFallbacks(t *testing.T) {
	want := map[models.MessageType]string{
		models.MessageText:  TextFallback,
		models.MessageVoice: VoiceFallback,
		models.MessageVideo: VideoFallback,
	}
	svc := NewService(&stubGenerator{err: errors.New("upstream unavailable")})

	for typ, fallback := range want {
		resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{Message: "hi", Type: typ})
		require.NoError(t, err)
		assert.Equal(t, fallback, resp.Response)
		assert.Equal(t, models.MessageText, resp.Type)
	}
}

func TestHandleMessageCustomChannel(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	svc := NewService(gen, Channel{
		Type:     models.MessageVoice,
		Fallback: "voice down",
		Preprocess: func(_ context.Context, message string) (string, error) {
			return "transcript: " + message, nil
		},
	})

	resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{Message: "audio", Type: models.MessageVoice})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
	assert.Equal(t, []string{"transcript: audio"}, gen.prompts)

	_, err = svc.HandleMessage(context.Background(), models.ChatRequest{Message: "hi", Type: models.MessageText})
	assert.ErrorIs(t, err, ErrInvalidMessageType)
}

func TestHandleMessagePreprocessFailure(t *testing.T) {
	gen := &stubGenerator{reply: "unused"}
	svc := NewService(gen, Channel{
		Type:     models.MessageVideo,
		Fallback: VideoFallback,
		Preprocess: func(context.Context, string) (string, error) {
			return "", errors.New("no frames")
		},
	})

	resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{Message: "x", Type: models.MessageVideo})
	require.NoError(t, err)
	assert.Equal(t, VideoFallback, resp.Response)
	assert.Empty(t, gen.prompts)
}

func TestHandleMessageNonStringMessage(t *testing.T) {
	for _, msg := range []any{123.0, true, []any{"hi"}, map[string]any{"text": "hi"}} {
		gen := &stubGenerator{reply: "unused"}
		svc := NewService(gen)

		resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{Message: msg, Type: models.MessageVoice})
		require.NoError(t, err)
		assert.Equal(t, VoiceFallback, resp.Response, "message %v", msg)
		assert.Equal(t, models.MessageText, resp.Type)
		assert.Empty(t, gen.prompts)
	}
}

func TestHandleMessageMissingMessage(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	svc := NewService(gen)

	resp, err := svc.HandleMessage(context.Background(), models.ChatRequest{Type: models.MessageText})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
	assert.Equal(t, []string{""}, gen.prompts)
}

func TestTextFallbackMatchesGenerationClient(t *testing.T) {
	assert.Equal(t, ai.FallbackReply, TextFallback)
}

func TestHandleMessageRejectsUnknownChannelType(t *testing.T) {
	gen := &stubGenerator{reply: "unused"}
	svc := NewService(gen, Channel{Type: "sms", Fallback: "sms down"})

	_, err := svc.HandleMessage(context.Background(), models.ChatRequest{Message: "hi", Type: "sms"})
	assert.ErrorIs(t, err, ErrInvalidMessageType)
	assert.Empty(t, gen.prompts)
}
