package lastframe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store keeps the most recent analyzed frame per camera as
// <dir>/<NAME>_last.jpg so external dashboards can show a live view. Only
// the latest frame survives; there is no history. A nil Store discards
// writes.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the directory if needed. Returns nil when dir is empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create last frame dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the frame atomically (temp file + rename) so readers never
// observe a half-written JPEG.
func (s *Store) Save(camera string, jpeg []byte) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final := filepath.Join(s.dir, SafeName(camera)+"_last.jpg")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, jpeg, 0o644); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("replace frame: %w", err)
	}
	return nil
}

// Path returns where a camera's last frame lives.
func (s *Store) Path(camera string) string {
	if s == nil {
		return ""
	}
	return filepath.Join(s.dir, SafeName(camera)+"_last.jpg")
}

// SafeName replaces every non-alphanumeric rune with an underscore so
// camera names are usable as file names.
func SafeName(camera string) string {
	var b strings.Builder
	b.Grow(len(camera))
	for _, r := range camera {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
