package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// AdjustTempo speeds audio up (or down) with ffmpeg's atempo filter, piping
// bytes through stdin/stdout so no scratch file is needed.
func AdjustTempo(ctx context.Context, ffmpegPath string, audio []byte, speed float64) ([]byte, error) {
	if speed == 1.0 {
		return audio, nil
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", "pipe:0",
		"-filter:a", fmt.Sprintf("atempo=%.2f", speed),
		"-f", "mp3",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(audio)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg atempo: %w (%s)", err, stderr.String())
	}

	return stdout.Bytes(), nil
}
