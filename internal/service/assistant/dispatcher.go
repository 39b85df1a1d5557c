package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"senyas/internal/models"
	"senyas/internal/service/ai"
)

// ErrInvalidMessageType is returned for any type outside text, voice and video.
var ErrInvalidMessageType = errors.New("invalid message type")

var errNonTextMessage = errors.New("message is not a string")

const (
	TextFallback  = ai.FallbackReply
	VoiceFallback = "I'm sorry, I'm having trouble processing your voice message."
	VideoFallback = "I'm sorry, I'm having trouble processing your video message."
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Preprocessor converts a channel payload into the prompt sent to the Generator.
type Preprocessor func(ctx context.Context, message string) (string, error)

// Channel is the per-type strategy used by Service.
type Channel struct {
	Type       models.MessageType
	Fallback   string
	Preprocess Preprocessor
}

// DefaultChannels returns the text, voice and video channels.
func DefaultChannels() []Channel {
	return []Channel{
		{Type: models.MessageText, Fallback: TextFallback, Preprocess: passThrough},
		{Type: models.MessageVoice, Fallback: VoiceFallback, Preprocess: transcribeVoice},
		{Type: models.MessageVideo, Fallback: VideoFallback, Preprocess: interpretSigning},
	}
}

func passThrough(_ context.Context, message string) (string, error) {
	return message, nil
}

// transcribeVoice is a placeholder: speech-to-text is not implemented and the
// message is expected to already be a transcript.
func transcribeVoice(ctx context.Context, message string) (string, error) {
	return passThrough(ctx, message)
}

// interpretSigning is a placeholder: sign-language frame extraction is not
// implemented and the message is forwarded unchanged.
func interpretSigning(ctx context.Context, message string) (string, error) {
	return passThrough(ctx, message)
}

// Service routes chat messages to the channel matching their declared type.
type Service struct {
	generator Generator
	channels  map[models.MessageType]Channel
}

// NewService uses DefaultChannels when none are given.
func NewService(generator Generator, channels ...Channel) *Service {
	if len(channels) == 0 {
		channels = DefaultChannels()
	}
	byType := make(map[models.MessageType]Channel, len(channels))
	for _, ch := range channels {
		if ch.Preprocess == nil {
			ch.Preprocess = passThrough
		}
		byType[ch.Type] = ch
	}
	return &Service{generator: generator, channels: byType}
}

// HandleMessage only fails for an unknown type; generation failures are
// answered with the channel's fallback text.
func (s *Service) HandleMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	ch, ok := s.channels[req.Type]
	if !req.Type.Valid() || !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMessageType, req.Type)
	}
	return &models.ChatResponse{
		Response: s.reply(ctx, ch, req.Message),
		Type:     models.MessageText,
	}, nil
}

func (s *Service) reply(ctx context.Context, ch Channel, message any) string {
	var text string
	switch v := message.(type) {
	case string:
		text = v
	case nil:
	default:
		slog.ErrorContext(ctx, "process message failed", "type", ch.Type, "error", errNonTextMessage)
		return ch.Fallback
	}
	prompt, err := ch.Preprocess(ctx, text)
	if err != nil {
		slog.ErrorContext(ctx, "preprocess message failed", "type", ch.Type, "error", err)
		return ch.Fallback
	}
	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		slog.ErrorContext(ctx, "process message failed", "type", ch.Type, "error", err)
		return ch.Fallback
	}
	return reply
}
