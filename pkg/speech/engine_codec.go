package speech

import (
	"context"

	"ai-voicebot-be/internal/pkg/logger"
)

// EngineCodec composes the whisper transcriber and the TTS client into the
// Codec contract, applying text cleanup and the tempo transform.
type EngineCodec struct {
	stt        *WhisperClient
	tts        *TTSClient
	speed      float64
	ffmpegPath string
	logger     logger.ILogger
}

var _ Codec = &EngineCodec{}

func NewEngineCodec(
	stt *WhisperClient,
	tts *TTSClient,
	speed float64,
	ffmpegPath string,
	log logger.ILogger,
) *EngineCodec {
	if speed <= 0 {
		speed = 1.2
	}
	return &EngineCodec{
		stt:        stt,
		tts:        tts,
		speed:      speed,
		ffmpegPath: ffmpegPath,
		logger:     log,
	}
}

func (c *EngineCodec) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return c.stt.Transcribe(ctx, audioPath)
}

func (c *EngineCodec) Synthesize(ctx context.Context, text, language string) (Audio, error) {
	cleaned := CleanTextForTTS(text)
	if cleaned == "" {
		return Audio{}, nil
	}

	audioBytes, err := c.tts.Speak(ctx, cleaned, language)
	if err != nil {
		return Audio{}, err
	}

	if c.speed != 1.0 {
		adjusted, err := AdjustTempo(ctx, c.ffmpegPath, audioBytes, c.speed)
		if err != nil {
			// Tempo adjustment is cosmetic; fall back to the original audio.
			c.logger.Warn("Speech", "Tempo adjustment failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			audioBytes = adjusted
		}
	}

	return Audio{Bytes: audioBytes}, nil
}
