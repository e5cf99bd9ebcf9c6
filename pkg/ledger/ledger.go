// Package ledger persists the set of handled inbox item IDs so the bot
// never reposts the same share twice, across restarts included.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"igrepost/pkg/logger"
)

// fileShape is the on-disk layout: {"processed": ["<id>", ...]}
type fileShape struct {
	Processed []string `json:"processed"`
}

// Ledger tracks processed inbox item IDs. Membership is monotonic: IDs are
// only ever added. Accessed from the single orchestrator goroutine, so no
// locking is needed.
type Ledger struct {
	path      string
	processed map[string]struct{}
	logger    logger.Logger
}

// New creates a ledger backed by the file at path and loads any existing
// state. An unreadable or malformed file is logged and treated as empty:
// losing dedup history only risks one extra repost attempt, while refusing
// to start would keep the bot down.
func New(path string, log logger.Logger) *Ledger {
	if log == nil {
		log = logger.GetLogger()
	}

	l := &Ledger{
		path:      path,
		processed: make(map[string]struct{}),
		logger:    log,
	}
	l.load()
	return l
}

func (l *Ledger) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("no processed messages yet, starting fresh")
		} else {
			l.logger.WithError(err).Warn("ledger file unreadable, starting fresh")
		}
		return
	}

	var shape fileShape
	if err := json.Unmarshal(data, &shape); err != nil {
		l.logger.WithError(err).Warn("corrupted ledger file, starting fresh")
		return
	}

	for _, id := range shape.Processed {
		l.processed[id] = struct{}{}
	}

	l.logger.InfoWithFields("loaded processed message IDs", map[string]interface{}{
		"count": len(l.processed),
		"path":  l.path,
	})
}

// IsProcessed checks if an item has already been handled
func (l *Ledger) IsProcessed(id string) bool {
	_, ok := l.processed[id]
	return ok
}

// MarkProcessed adds an ID to the set and durably persists the full set
// before returning. A crash after MarkProcessed returns must never lose
// the just-marked ID.
func (l *Ledger) MarkProcessed(id string) error {
	l.processed[id] = struct{}{}

	if err := l.save(); err != nil {
		return fmt.Errorf("failed to persist ledger: %w", err)
	}

	l.logger.DebugWithFields("marked message as processed", map[string]interface{}{
		"item_id": id,
	})
	return nil
}

// save atomically rewrites the full set: write to a temp file, fsync,
// then rename over the previous file.
func (l *Ledger) save() error {
	ids := make([]string, 0, len(l.processed))
	for id := range l.processed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	tempPath := l.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fileShape{Processed: ids}); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close ledger file: %w", err)
	}

	if err := os.Rename(tempPath, l.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	return nil
}

// Len returns the number of processed IDs
func (l *Ledger) Len() int {
	return len(l.processed)
}
