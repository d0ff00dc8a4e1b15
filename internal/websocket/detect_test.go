package websocket

import (
	"testing"
)

func TestDetectUserName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "my name is",
			input: "Hello, my name is alice and I want a flat",
			want:  "Alice",
		},
		{
			name:  "i am",
			input: "Hi there, I am Bob",
			want:  "Bob",
		},
		{
			name:  "contracted i'm",
			input: "i'm CHARLIE, nice to meet you",
			want:  "Charlie",
		},
		{
			name:  "case insensitive phrase",
			input: "MY NAME IS dave",
			want:  "Dave",
		},
		{
			name:  "no introduction",
			input: "What apartments do you have in Mumbai?",
			want:  "",
		},
		{
			name:  "i am not followed by a word",
			input: "I am 25 years old",
			want:  "",
		},
		{
			name:  "substring aim does not match",
			input: "claim processing takes a week",
			want:  "",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectUserName(tt.input); got != tt.want {
				t.Errorf("DetectUserName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
