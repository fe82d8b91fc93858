package dao

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"resvalidator/pkg/logger"

	"github.com/cespare/xxhash"
	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
)

// FileStateDAO keeps state in a single JSON object on disk. Writes replace the
// file atomically; Watch picks up writes made by other processes.
type FileStateDAO struct {
	path   string
	logger *logger.Logger

	mu     sync.RWMutex
	items  map[string]string
	digest uint64
}

func NewFileStateDAO(path string, log *logger.Logger) (*FileStateDAO, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	d := &FileStateDAO{
		path:   path,
		logger: log,
		items:  make(map[string]string),
	}
	if _, err := d.reload(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *FileStateDAO) Path() string {
	return d.path
}

func (d *FileStateDAO) Get(key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.items[key]
	return v, ok, nil
}

func (d *FileStateDAO) Set(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, had := d.items[key]
	d.items[key] = value
	if err := d.flushLocked(); err != nil {
		if had {
			d.items[key] = prev
		} else {
			delete(d.items, key)
		}
		return err
	}
	return nil
}

func (d *FileStateDAO) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, had := d.items[key]
	if !had {
		return nil
	}
	delete(d.items, key)
	if err := d.flushLocked(); err != nil {
		d.items[key] = prev
		return err
	}
	return nil
}

func (d *FileStateDAO) flushLocked() error {
	data, err := json.MarshalIndent(d.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}

	d.digest = xxhash.Sum64(data)
	return nil
}

// reload reads the file into memory and reports whether the content differs
// from what this instance last read or wrote.
func (d *FileStateDAO) reload() (bool, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read state file: %w", err)
	}

	sum := xxhash.Sum64(data)

	d.mu.Lock()
	defer d.mu.Unlock()

	if sum == d.digest {
		return false, nil
	}

	items := make(map[string]string)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			return false, fmt.Errorf("decode state file: %w", err)
		}
	}
	d.items = items
	d.digest = sum
	return true, nil
}

// Watch calls onChange whenever another writer changes the state file. It
// blocks until ctx is done.
func (d *FileStateDAO) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create state watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic replaces swap the inode under the path.
	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		return fmt.Errorf("watch state directory: %w", err)
	}

	d.logger.WithFields(logger.Fields{"file": d.path}).Info("Watching state file")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			changed, err := d.reload()
			if err != nil {
				d.logger.WithFields(logger.Fields{"file": d.path, "error": err}).Warn("Failed to reload state file")
				continue
			}
			if changed {
				d.logger.WithFields(logger.Fields{"file": d.path}).Info("State file changed externally, reloaded")
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.WithFields(logger.Fields{"file": d.path, "error": err}).Error("State watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}
