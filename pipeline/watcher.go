package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the file watcher
type WatcherConfig struct {
	// Root is the directory to watch
	Root string

	// Extension selects the files to process (default: .json)
	Extension string

	// DebounceDelay is how long to wait for more changes before processing
	DebounceDelay time.Duration

	// Logger for logging events
	Logger *slog.Logger
}

// WatchEvent represents a file change event
type WatchEvent struct {
	// Path is the file path relative to the watch root
	Path string

	// Operation is the type of change
	Operation WatchOperation

	// Output is the pipeline result (nil for delete operations)
	Output *Output

	// Error if processing failed
	Error error
}

// WatchOperation indicates the type of file operation
type WatchOperation string

const (
	OpCreate WatchOperation = "create"
	OpModify WatchOperation = "modify"
	OpDelete WatchOperation = "delete"
)

// Watcher watches a directory for record files and reprocesses them on change
type Watcher struct {
	config   WatcherConfig
	pipeline *Pipeline
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op // path → most recent operation

	// State tracking for change detection
	hashMu sync.RWMutex
	hashes map[string]string // relative path → content hash

	// Output channel
	events chan WatchEvent
	done   chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// NewWatcher creates a new file watcher
func NewWatcher(config WatcherConfig, p *Pipeline) (*Watcher, error) {
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, err
	}
	config.Root = root

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = 100 * time.Millisecond
	}
	if config.Extension == "" {
		config.Extension = DefaultExtension
	}

	return &Watcher{
		config:   config,
		pipeline: p,
		watcher:  fsw,
		logger:   config.Logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan WatchEvent, 100),
	}, nil
}

// Events returns the channel of watch events
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start begins watching the root for changes
func (w *Watcher) Start(ctx context.Context) error {
	// Add watches recursively
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	w.done = make(chan struct{})
	go w.processEvents(ctx)

	w.logger.Info("File watcher started",
		"root", w.config.Root,
		"debounce", w.config.DebounceDelay)

	return nil
}

// Stop stops the watcher and closes the events channel once the event loop
// has exited. Later calls return the result of the first.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		w.stopErr = w.watcher.Close()
		if w.done != nil {
			<-w.done
		}
		close(w.events)
	})
	return w.stopErr
}

// SetHash records the hash for a file (used during initial indexing)
func (w *Watcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// GetHash returns the recorded hash for a file
func (w *Watcher) GetHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// addWatchesRecursive adds watches to all directories
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Only watch directories
		if !d.IsDir() {
			return nil
		}

		// Skip hidden directories
		if path != root && skipDir(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}

		return nil
	})
}

func skipDir(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// processEvents handles fsnotify events with debouncing
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent processes a single fsnotify event
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !strings.HasSuffix(path, w.config.Extension) {
		// But handle directory creation (for new watches)
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	// Chmod alone does not change content
	if event.Op == fsnotify.Chmod {
		return
	}

	// Accumulate pending changes
	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected",
		"path", w.relPath(path),
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory
func (w *Watcher) handleNewDirectory(path string) {
	if skipDir(path) {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending processes accumulated changes in path order
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	// Copy and clear pending
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for _, path := range slices.Sorted(maps.Keys(toProcess)) {
		if ctx.Err() != nil {
			return
		}
		op := toProcess[path]
		relPath := w.relPath(path)
		event := WatchEvent{Path: relPath}

		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			// File deleted or renamed away (treat rename as delete + create)
			event.Operation = OpDelete

			w.hashMu.Lock()
			_, known := w.hashes[relPath]
			delete(w.hashes, relPath)
			w.hashMu.Unlock()

			if known {
				w.sendEvent(event)
			}
			continue
		}
		if err != nil {
			event.Error = err
			w.sendEvent(event)
			continue
		}

		// Check if content actually changed
		hash := contentHash(data)
		oldHash, hadHash := w.GetHash(relPath)
		if hadHash && oldHash == hash {
			continue
		}

		out, err := w.pipeline.ProcessReader(ctx, relPath, bytes.NewReader(data))
		if err != nil {
			event.Error = err
			w.sendEvent(event)
			continue
		}

		// Update hash cache
		w.SetHash(relPath, hash)

		if op.Has(fsnotify.Create) || !hadHash {
			event.Operation = OpCreate
		} else {
			event.Operation = OpModify
		}
		event.Output = out

		w.sendEvent(event)
	}
}

// sendEvent sends an event to the output channel
func (w *Watcher) sendEvent(event WatchEvent) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event",
			"path", event.Path,
			"op", event.Operation)
	default:
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path)
	}
}

// IndexDirectory processes every matching file under the root and records
// content hashes so unchanged files are not reprocessed
func (w *Watcher) IndexDirectory(ctx context.Context) (*Report, error) {
	paths, err := globFiles(filepath.Join(w.config.Root, "**", "*"+w.config.Extension))
	if err != nil {
		return nil, err
	}

	report, err := w.pipeline.ProcessFiles(ctx, paths)
	if err != nil {
		return nil, err
	}

	failed := make(map[string]bool, len(report.Failures))
	for _, f := range report.Failures {
		failed[f.Path] = true
	}
	for _, path := range paths {
		if failed[path] {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		w.SetHash(w.relPath(path), contentHash(data))
	}

	return report, nil
}

func (w *Watcher) relPath(path string) string {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return path
	}
	return rel
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
