// Package songsync loads song files from a directory into the library and
// keeps watching it for new ones.
package songsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/yalmoalm/JaMoveo/internal/services"
)

// Importer adds song files to the library. A file is named after the song,
// like an upload, and is skipped when a song of that name already exists.
type Importer struct {
	songs  *services.SongService
	logger *slog.Logger
}

func NewImporter(songs *services.SongService, logger *slog.Logger) *Importer {
	return &Importer{songs: songs, logger: logger}
}

func songName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isSongFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// ImportFile stores one song file. It reports false when the song was
// already present.
func (i *Importer) ImportFile(ctx context.Context, path string) (bool, error) {
	name := songName(path)

	_, err := i.songs.GetByName(ctx, name)
	if err == nil {
		return false, nil
	}
	var notFound *services.NotFoundError
	if !errors.As(err, &notFound) {
		return false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	lines, err := services.ParseSongFile(f)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}

	detail, err := i.songs.Create(ctx, name, lines)
	if err != nil {
		return false, err
	}
	i.logger.Info("song imported", "song", detail.Song.Name, "song_id", detail.Song.ID, "words", len(detail.Lines))
	return true, nil
}

// ImportDir imports every song file in dir. Files that fail to parse are
// logged and skipped.
func (i *Importer) ImportDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, e := range entries {
		if e.IsDir() || !isSongFile(e.Name()) {
			continue
		}
		ok, err := i.ImportFile(ctx, filepath.Join(dir, e.Name()))
		if err != nil {
			var validation *services.ValidationError
			if errors.As(err, &validation) {
				i.logger.Warn("skipping song file", "file", e.Name(), "error", err)
				continue
			}
			return imported, err
		}
		if ok {
			imported++
		}
	}
	return imported, nil
}

// Watch imports dir and then every song file created or rewritten in it
// until ctx is done.
func (i *Importer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch song dir: %w", err)
	}

	if _, err := i.ImportDir(ctx, dir); err != nil {
		return err
	}
	i.logger.Info("watching song directory", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSongFile(event.Name) || event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// A file may be seen half written; the next write event retries it.
			if _, err := i.ImportFile(ctx, event.Name); err != nil {
				i.logger.Warn("song import failed", "file", event.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			i.logger.Warn("song watcher error", "error", err)
		}
	}
}
