package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ai-voicebot-be/internal/pkg/logger"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// URLPrefix is the static route synthesized audio files are served under.
const URLPrefix = "/static_audio"

// FileStore persists synthesized audio under a servable directory and expires
// old files via go-cache's janitor, so the directory cannot grow unbounded.
type FileStore struct {
	dir    string
	index  *gocache.Cache
	logger logger.ILogger
}

func NewFileStore(dir string, ttl time.Duration, log logger.ILogger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	index := gocache.New(ttl, 10*time.Minute)
	fs := &FileStore{
		dir:    dir,
		index:  index,
		logger: log,
	}
	index.OnEvicted(func(key string, _ interface{}) {
		if err := os.Remove(filepath.Join(dir, key)); err != nil && !os.IsNotExist(err) {
			log.Warn("AudioStore", "Failed to remove expired audio file", map[string]interface{}{
				"file":  key,
				"error": err.Error(),
			})
		}
	})
	return fs, nil
}

// Save writes the audio bytes to a fresh file and returns its servable URL path.
func (fs *FileStore) Save(audio []byte) (string, error) {
	name := uuid.New().String() + ".mp3"
	if err := os.WriteFile(filepath.Join(fs.dir, name), audio, 0644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	fs.index.Set(name, struct{}{}, gocache.DefaultExpiration)
	return URLPrefix + "/" + name, nil
}

// Dir exposes the backing directory for static-route registration.
func (fs *FileStore) Dir() string {
	return fs.dir
}
