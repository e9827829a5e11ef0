// Package apikey holds API credentials and hot-reloads them from files so a
// rotated key takes effect without restarting the process.
package apikey

import (
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store is an atomic credential holder. It satisfies the KeyProvider
// interfaces of the ytchat and speech packages.
type Store struct {
	key atomic.Value // string
}

// NewStore creates a store with an initial key (may be empty).
func NewStore(initial string) *Store {
	s := &Store{}
	s.key.Store(strings.TrimSpace(initial))
	return s
}

// APIKey returns the current key.
func (s *Store) APIKey() string {
	v, _ := s.key.Load().(string)
	return v
}

// Set replaces the current key.
func (s *Store) Set(key string) {
	s.key.Store(strings.TrimSpace(key))
}

// ReadFile loads a key file: first line, whitespace trimmed.
func ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(b))
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	return line, nil
}

// WatchFile reloads the key whenever path changes. Events are debounced;
// removal or rename re-adds the watch so editors that replace the file keep
// working. Read failures keep the previous key.
func (s *Store) WatchFile(path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := w.Add(ev.Name); err != nil {
						slog.Error("apikey: watch re-add", "path", ev.Name, "err", err)
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(250 * time.Millisecond)
				}
			case <-debounce.C:
				key, err := ReadFile(path)
				if err != nil {
					slog.Error("apikey: reload failed, keeping previous key", "path", path, "err", err)
					continue
				}
				s.Set(key)
				slog.Info("apikey: reloaded key", "path", path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("apikey: watch error", "err", err)
			}
		}
	}()
	return nil
}
