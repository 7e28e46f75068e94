// Package fontdir maintains a registry of local font files that requests
// can reference by name. The directory is watched so fonts dropped in at
// runtime become available without a restart.
package fontdir

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/shapefill/shapefill/font"
)

// ErrUnknownFont is returned by Lookup for names with no loaded font.
var ErrUnknownFont = errors.New("fontdir: unknown font")

// Registry holds parsed fonts keyed by lowercased file stem.
type Registry struct {
	dir     string
	log     *zap.Logger
	watcher *fsnotify.Watcher

	mu    sync.RWMutex
	fonts map[string]*font.Source

	stop chan struct{}
	done chan struct{}
}

// Open scans dir for font files and starts watching it for changes.
func Open(dir string, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		dir:     dir,
		log:     log,
		watcher: watcher,
		fonts:   make(map[string]*font.Source),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if err := r.scan(); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go r.run()
	return r, nil
}

// Lookup returns the font registered under name. Matching is
// case-insensitive and ignores any extension in the requested name.
func (r *Registry) Lookup(name string) (*font.Source, error) {
	key := fontKey(name)
	r.mu.RLock()
	src, ok := r.fonts[key]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownFont
	}
	return src, nil
}

// Names returns the registered font names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fonts))
	for name := range r.fonts {
		names = append(names, name)
	}
	return names
}

// Close stops the watcher and waits for its goroutine to exit.
func (r *Registry) Close() error {
	close(r.stop)
	err := r.watcher.Close()
	<-r.done
	return err
}

func (r *Registry) run() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(event)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("font watcher error", zap.Error(err))
		}
	}
}

func (r *Registry) handleEvent(event fsnotify.Event) {
	if !isFontFile(event.Name) {
		return
	}
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		r.load(event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		key := fontKey(filepath.Base(event.Name))
		r.mu.Lock()
		delete(r.fonts, key)
		r.mu.Unlock()
		r.log.Info("font removed", zap.String("name", key))
	}
}

func (r *Registry) scan() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isFontFile(entry.Name()) {
			continue
		}
		r.load(filepath.Join(r.dir, entry.Name()))
	}
	return nil
}

func (r *Registry) load(path string) {
	src, err := font.NewSourceFromFile(path)
	if err != nil {
		r.log.Warn("skipping unreadable font",
			zap.String("path", path), zap.Error(err))
		return
	}
	key := fontKey(filepath.Base(path))
	r.mu.Lock()
	r.fonts[key] = src
	r.mu.Unlock()
	r.log.Info("font loaded",
		zap.String("name", key), zap.String("family", src.Name()))
}

func isFontFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}

// fontKey normalizes a requested name or filename to a lookup key:
// lowercased stem with any font extension stripped.
func fontKey(name string) string {
	name = strings.ToLower(filepath.Base(name))
	if isFontFile(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
