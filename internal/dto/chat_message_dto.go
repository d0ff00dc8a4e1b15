package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Inbound message type tags.
const (
	TypeLanguageSwitch = "language_switch"
	TypeTextQuery      = "text_query"
	TypeAudioQuery     = "audio_query"
)

// Outbound message type tags.
const (
	TypeError       = "error"
	TypeStatus      = "status"
	TypeResponse    = "response"
	TypeUserMessage = "user_message"
)

// ErrUnsupportedType marks an inbound message whose type tag is not one of the
// closed variant set. Non-fatal for the connection.
var ErrUnsupportedType = errors.New("unsupported message type")

// InboundMessage is the closed variant set of client messages. Decoding and
// validation happen once, at the transport boundary.
type InboundMessage interface {
	isInbound()
}

// LanguageSwitch updates the session language. Not a conversational turn.
type LanguageSwitch struct {
	Language string
}

// TextQuery is one conversational turn supplied as text.
type TextQuery struct {
	Text string
}

// AudioQuery is one conversational turn supplied as audio, already decoded
// from its transport encoding.
type AudioQuery struct {
	Audio []byte
}

func (LanguageSwitch) isInbound() {}
func (TextQuery) isInbound()      {}
func (AudioQuery) isInbound()     {}

type inboundEnvelope struct {
	Type      string `json:"type"`
	Language  string `json:"language"`
	Text      string `json:"text"`
	AudioData string `json:"audio_data"`
}

// DecodeInbound parses raw JSON into one of the inbound variants. Unknown type
// tags yield ErrUnsupportedType; malformed payloads yield a descriptive error.
func DecodeInbound(raw []byte) (InboundMessage, error) {
	var envelope inboundEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch envelope.Type {
	case TypeLanguageSwitch:
		if envelope.Language == "" {
			return nil, fmt.Errorf("language_switch requires a language field")
		}
		return LanguageSwitch{Language: envelope.Language}, nil
	case TypeTextQuery:
		return TextQuery{Text: strings.TrimSpace(envelope.Text)}, nil
	case TypeAudioQuery:
		audio, err := base64.StdEncoding.DecodeString(envelope.AudioData)
		if err != nil {
			return nil, fmt.Errorf("audio_data is not valid base64: %w", err)
		}
		if len(audio) == 0 {
			return nil, fmt.Errorf("audio_query requires audio_data")
		}
		return AudioQuery{Audio: audio}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, envelope.Type)
	}
}

// ErrorMessage reports a handshake failure or a protocol error.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

// StatusMessage acknowledges non-conversational requests (language switch,
// knowledge base updates).
type StatusMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewStatusMessage(message string) StatusMessage {
	return StatusMessage{Type: TypeStatus, Message: message}
}

// ResponseMessage carries one bot turn: text plus an audio reference. Both
// representations are populated when available so clients can pick either.
type ResponseMessage struct {
	Type        string `json:"type"`
	Sender      string `json:"sender"`
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64"`
	AudioURL    string `json:"audio_url,omitempty"`
}

func NewResponseMessage(text string, audioBytes []byte, audioURL string) ResponseMessage {
	msg := ResponseMessage{
		Type:     TypeResponse,
		Sender:   "bot",
		Text:     text,
		AudioURL: audioURL,
	}
	if len(audioBytes) > 0 {
		msg.AudioBase64 = base64.StdEncoding.EncodeToString(audioBytes)
	}
	return msg
}

// UserMessage echoes a transcription back to the client before the turn
// completes, so the user sees what was understood.
type UserMessage struct {
	Type   string `json:"type"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

func NewUserMessage(text string) UserMessage {
	return UserMessage{Type: TypeUserMessage, Sender: "user", Text: text}
}
