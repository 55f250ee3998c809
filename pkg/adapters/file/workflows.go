package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/signoff/internal/dto"
	"github.com/aretw0/signoff/internal/logging"
	"github.com/aretw0/signoff/internal/validator"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

var workflowExts = []string{".yaml", ".yml", ".json"}

// Workflows implements ports.WorkflowStore and ports.Watchable over a directory
// of workflow documents, one per file, named after the workflow id.
// Files are read on every Get so edits take effect without a restart.
type Workflows struct {
	Dir    string
	logger *slog.Logger
}

// WorkflowsOption configures a Workflows store.
type WorkflowsOption func(*Workflows)

// WithLogger sets the logger used by Watch.
func WithLogger(logger *slog.Logger) WorkflowsOption {
	return func(w *Workflows) {
		w.logger = logger
	}
}

// NewWorkflows creates a workflow store reading from dir.
func NewWorkflows(dir string, opts ...WorkflowsOption) *Workflows {
	w := &Workflows{Dir: dir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Get parses and validates the workflow stored under id.
func (w *Workflows) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	path, ok := w.find(id)
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	wf, err := dto.ParseWorkflow(data)
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", filepath.Base(path), err)
	}
	if wf.ID == "" {
		wf.ID = id
	}
	if wf.ID != id {
		return nil, fmt.Errorf("workflow file %s declares id %q", filepath.Base(path), wf.ID)
	}
	if err := validator.Validate(wf); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", id, err)
	}
	return wf, nil
}

// List returns the ids of all workflow files in the directory.
func (w *Workflows) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	seen := map[string]bool{}
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := workflowID(entry.Name())
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Watch implements ports.Watchable. It emits the id of every workflow file
// that is written, created, removed or renamed until ctx is done.
func (w *Workflows) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	if err := watcher.Add(w.Dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("workflow watcher error", "dir", w.Dir, "err", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) &&
					!evt.Has(fsnotify.Remove) && !evt.Has(fsnotify.Rename) {
					continue
				}
				id, ok := workflowID(filepath.Base(evt.Name))
				if !ok {
					continue
				}
				w.logger.Debug("workflow changed", "workflow_id", id, "op", evt.Op.String())
				select {
				case ch <- id:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func (w *Workflows) find(id string) (string, bool) {
	if !validID(id) {
		return "", false
	}
	for _, ext := range workflowExts {
		path := filepath.Join(w.Dir, id+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func workflowID(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "tmp-") {
		return "", false
	}
	ext := filepath.Ext(name)
	for _, known := range workflowExts {
		if ext == known {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}
