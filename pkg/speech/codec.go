package speech

import "context"

// Audio is the single result shape for synthesized speech: inline bytes,
// a servable URL path, or both. Downstream code never type-inspects.
type Audio struct {
	Bytes []byte
	URL   string
}

func (a Audio) IsZero() bool {
	return len(a.Bytes) == 0 && a.URL == ""
}

// Codec converts between audio and text. Both operations block for seconds and
// must be offloaded from the connection's message loop.
type Codec interface {
	// Transcribe converts the audio file at audioPath to text.
	Transcribe(ctx context.Context, audioPath string) (string, error)

	// Synthesize converts text to speech audio in the given language. Failure
	// yields an error, not sentinel text; callers substitute silence.
	Synthesize(ctx context.Context, text, language string) (Audio, error)
}
