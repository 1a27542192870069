package adapters

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"contextos/internal/logging"
	"contextos/internal/types"
)

// FileDrop watches a directory and turns each file created in it into
// an event signal: text files become text signals, images become image
// signals carrying a data URI.
type FileDrop struct {
	dir string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewFileDrop creates a FileDrop adapter for dir.
func NewFileDrop(dir string) *FileDrop {
	return &FileDrop{dir: dir}
}

// Name implements Adapter.
func (f *FileDrop) Name() string { return "file_drop" }

// Start implements Adapter.
func (f *FileDrop) Start(ctx context.Context, emit EmitFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher != nil {
		return nil
	}

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating drop directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.watcher = watcher
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.loop(runCtx, watcher, emit)
	return nil
}

func (f *FileDrop) loop(ctx context.Context, watcher *fsnotify.Watcher, emit EmitFunc) {
	log := logging.Get(logging.CategoryAdapters)
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			// Give the writer a moment to finish; drops are whole
			// files, not streams.
			time.Sleep(50 * time.Millisecond)

			signal, err := f.read(event.Name)
			if err != nil {
				log.Warnw("ignoring dropped file", "path", event.Name, "error", err)
				continue
			}
			log.Infow("file drop signal", "path", event.Name, "type", signal.Content.Type)
			emit(signal)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnw("file drop watcher error", "error", err)
		}
	}
}

// read builds a signal from the dropped file based on its extension.
func (f *FileDrop) read(path string) (types.Signal, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.Signal{}, err
	}
	if info.IsDir() {
		return types.Signal{}, fmt.Errorf("is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Signal{}, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		mime := "image/" + strings.TrimPrefix(ext, ".")
		if ext == ".jpg" {
			mime = "image/jpeg"
		}
		uri := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
		return types.NewSignal(f.Name(), types.SignalEvent, types.ImageContent(uri)), nil
	default:
		text := strings.TrimSpace(string(data))
		if text == "" {
			return types.Signal{}, fmt.Errorf("empty file")
		}
		return types.NewSignal(f.Name(), types.SignalEvent, types.TextContent(text)), nil
	}
}

// Stop implements Adapter.
func (f *FileDrop) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher == nil {
		return nil
	}
	f.cancel()
	err := f.watcher.Close()
	<-f.done
	f.watcher = nil
	return err
}
