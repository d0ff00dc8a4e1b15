package knowledge

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/pkg/utils"
)

// Document is a loaded source file, before chunking.
type Document struct {
	Content string
	Source  string
}

// Chunk is a single text window ready for embedding.
type Chunk struct {
	Content string
	Source  string
}

// LoadDocuments reads every supported file directly under sourceDir.
// Unsupported extensions are skipped with a warning, not an error.
func LoadDocuments(sourceDir string, log logger.ILogger) ([]Document, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	var documents []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(sourceDir, entry.Name())
		content, err := loadFile(path)
		if err != nil {
			log.Warn("Knowledge", "Skipping unreadable file", map[string]interface{}{
				"file":  entry.Name(),
				"error": err.Error(),
			})
			continue
		}
		if content == "" {
			log.Warn("Knowledge", "Skipping unsupported file type", map[string]interface{}{
				"file": entry.Name(),
			})
			continue
		}
		documents = append(documents, Document{
			Content: content,
			Source:  entry.Name(),
		})
	}

	return documents, nil
}

// loadFile returns the file's text content, or "" for unsupported extensions.
func loadFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".csv":
		return loadCSV(path)
	default:
		return "", nil
	}
}

// loadCSV flattens a CSV file into one line of text per row. Keeps the header
// row so column names remain searchable alongside values.
func loadCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, strings.Join(record, ", "))
	}
	return strings.Join(lines, "\n"), nil
}

// ChunkDocuments splits loaded documents into overlapping windows.
func ChunkDocuments(documents []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range documents {
		for _, piece := range utils.SplitText(doc.Content, ChunkSize, ChunkOverlap) {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Content: piece,
				Source:  doc.Source,
			})
		}
	}
	return chunks
}
