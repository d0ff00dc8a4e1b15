package utils

import "unicode"

// SplitText splits a long string into chunks of approximately 'chunkSize' characters.
// It includes an 'overlap' to preserve context at boundaries, so a fact that
// straddles a chunk edge is still retrievable from at least one chunk.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		} else {
			// Prefer breaking at whitespace near the boundary so words stay whole.
			end = backUpToSpace(runes, i, end)
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}

// backUpToSpace walks back from 'end' looking for a whitespace rune, but never
// further than a small window so pathological unbroken text still splits.
func backUpToSpace(runes []rune, start, end int) int {
	const window = 80
	for j := end; j > end-window && j > start+1; j-- {
		if unicode.IsSpace(runes[j-1]) {
			return j
		}
	}
	return end
}
