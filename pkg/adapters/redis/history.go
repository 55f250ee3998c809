package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/signoff/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// History implements ports.HistoryStore as one Redis list per instance.
type History struct {
	client *backend.Client
	opts   options
}

// NewHistory creates a history store from an existing client.
func NewHistory(client *backend.Client, opts ...Option) *History {
	return &History{client: client, opts: newOptions(opts)}
}

func (h *History) key(instanceID string) string {
	return h.opts.prefix + "history:" + instanceID
}

// Append pushes a record to the tail of the instance's list.
func (h *History) Append(ctx context.Context, record domain.HistoryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	pipe := h.client.Pipeline()
	pipe.RPush(ctx, h.key(record.InstanceID), data)
	if h.opts.ttl > 0 {
		pipe.Expire(ctx, h.key(record.InstanceID), h.opts.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// List returns the records of an instance ordered by Seq.
func (h *History) List(ctx context.Context, instanceID string) ([]domain.HistoryRecord, error) {
	vals, err := h.client.LRange(ctx, h.key(instanceID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	records := make([]domain.HistoryRecord, 0, len(vals))
	for _, v := range vals {
		var rec domain.HistoryRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history record: %w", err)
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records, nil
}
