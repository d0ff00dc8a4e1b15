package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// languageMap closes over the TTS language codes we support. Unknown codes
// fall back to English rather than failing synthesis.
var languageMap = map[string]string{
	"en":      "en",
	"english": "en",
	"en-us":   "en",
	"en-gb":   "en",
	"hi":      "hi",
	"hindi":   "hi",
}

// TTSClient generates MP3 speech from a translate-style TTS endpoint.
type TTSClient struct {
	BaseURL string
	Client  *http.Client
}

func NewTTSClient(baseURL string) *TTSClient {
	return &TTSClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func ttsLanguageCode(language string) string {
	if code, ok := languageMap[strings.ToLower(language)]; ok {
		return code
	}
	return "en"
}

// Speak fetches MP3 bytes for the text. The endpoint caps query length, so
// long responses are synthesized sentence-wise and concatenated; MP3 frames
// concatenate cleanly enough for chat playback.
func (t *TTSClient) Speak(ctx context.Context, text, language string) ([]byte, error) {
	const maxSegment = 200

	var audio []byte
	for _, segment := range splitForTTS(text, maxSegment) {
		segmentBytes, err := t.fetchSegment(ctx, segment, ttsLanguageCode(language))
		if err != nil {
			return nil, err
		}
		audio = append(audio, segmentBytes...)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts produced no audio")
	}
	return audio, nil
}

func (t *TTSClient) fetchSegment(ctx context.Context, text, langCode string) ([]byte, error) {
	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", langCode)
	query.Set("q", text)

	endpoint := t.BaseURL + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts error: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// splitForTTS breaks text on sentence boundaries, keeping each piece under max
// runes. All indexing is rune-based so multi-byte scripts (Devanagari) are
// never cut mid-character.
func splitForTTS(text string, max int) []string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var segments []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if piece := strings.TrimSpace(current.String()); piece != "" {
			segments = append(segments, piece)
		}
		current.Reset()
		currentLen = 0
	}

	for _, sentence := range splitSentences(text) {
		length := utf8.RuneCountInString(sentence)
		if currentLen+length > max && currentLen > 0 {
			flush()
		}
		// A single oversized sentence gets hard-split on rune boundaries.
		for length > max {
			runes := []rune(sentence)
			segments = append(segments, strings.TrimSpace(string(runes[:max])))
			sentence = string(runes[max:])
			length -= max
		}
		current.WriteString(sentence)
		currentLen += length
	}
	flush()
	return segments
}

// splitSentences breaks text after full stops, Latin or Devanagari danda.
func splitSentences(text string) []string {
	var sentences []string
	for _, part := range strings.SplitAfter(text, ". ") {
		sentences = append(sentences, strings.SplitAfter(part, "। ")...)
	}
	return sentences
}
