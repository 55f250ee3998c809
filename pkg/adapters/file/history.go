package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aretw0/signoff/pkg/domain"
)

// History implements ports.HistoryStore as one JSON Lines file per instance.
type History struct {
	BasePath string

	mu sync.Mutex
}

// NewHistory creates a history store. If basePath is empty, it defaults to ".signoff/history".
func NewHistory(basePath string) *History {
	if basePath == "" {
		basePath = filepath.Join(".signoff", "history")
	}
	return &History{BasePath: basePath}
}

func (h *History) path(instanceID string) string {
	return filepath.Join(h.BasePath, instanceID+".jsonl")
}

// Append writes the record as one line at the end of the instance's log.
func (h *History) Append(ctx context.Context, record domain.HistoryRecord) error {
	if !validID(record.InstanceID) {
		return fmt.Errorf("history record has invalid instance id %q", record.InstanceID)
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(h.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure history directory: %w", err)
	}
	f, err := os.OpenFile(h.path(record.InstanceID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return f.Sync()
}

// List reads the instance's log ordered by Seq. A missing log is an empty history.
func (h *History) List(ctx context.Context, instanceID string) ([]domain.HistoryRecord, error) {
	if !validID(instanceID) {
		return nil, domain.ErrInstanceNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	records := []domain.HistoryRecord{}
	f, err := os.Open(h.path(instanceID))
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec domain.HistoryRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history record: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records, nil
}
