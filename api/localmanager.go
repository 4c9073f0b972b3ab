package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aouyang1/photoslideshow/util"
	mapset "github.com/deckarep/golang-set/v2"
)

// LocalManager imports image files dropped into an inbox directory.
// Imported files are removed from the inbox; anything else is left alone.
type LocalManager struct {
	path     string
	interval time.Duration
	library  *Library

	// names that failed to import, so a bad file is not retried every scan
	failed mapset.Set[string]
}

func NewLocalManager(rootPath string, interval time.Duration, library *Library) (*LocalManager, error) {
	path := filepath.Join(rootPath, "inbox")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}
	return &LocalManager{
		path:     path,
		interval: interval,
		library:  library,
		failed:   mapset.NewThreadUnsafeSet[string](),
	}, nil
}

// Path is the inbox directory being watched.
func (l *LocalManager) Path() string {
	return l.path
}

type fileInfo struct {
	name    string
	modTime time.Time
	path    string
}

func (l *LocalManager) getCurrentFiles() ([]fileInfo, error) {
	dirs, err := os.ReadDir(l.path)
	if err != nil {
		return nil, err
	}

	var fileInfos []fileInfo
	for _, dir := range dirs {
		name := dir.Name()
		if dir.IsDir() || !util.IsSupported(name) {
			continue
		}

		info, err := dir.Info()
		if err != nil {
			continue
		}
		fileInfos = append(fileInfos, fileInfo{
			name:    name,
			modTime: info.ModTime(),
			path:    filepath.Join(l.path, name),
		})
	}

	// oldest first so the newest drop ends up newest in the store
	sort.Slice(fileInfos, func(i, j int) bool {
		return fileInfos[i].modTime.Before(fileInfos[j].modTime)
	})
	return fileInfos, nil
}

// ScanInbox imports every supported file currently in the inbox and
// returns how many were imported.
func (l *LocalManager) ScanInbox() (int, error) {
	fileInfos, err := l.getCurrentFiles()
	if err != nil {
		return 0, fmt.Errorf("unable to read inbox, %s, %w", l.path, err)
	}

	present := mapset.NewThreadUnsafeSet[string]()
	imported := 0
	for _, fi := range fileInfos {
		present.Add(fi.name)
		if l.failed.Contains(fi.name) {
			continue
		}
		if err := l.importFile(fi); err != nil {
			slog.Warn("error while importing inbox photo", "name", fi.name, "error", err)
			l.failed.Add(fi.name)
			continue
		}
		imported++
	}

	// forget failures for files that were removed or replaced
	l.failed = l.failed.Intersect(present)

	if imported > 0 {
		slog.Info("imported inbox photos", "count", imported)
	}
	return imported, nil
}

func (l *LocalManager) importFile(fi fileInfo) error {
	f, err := os.Open(fi.path)
	if err != nil {
		return err
	}
	_, err = l.library.Add(f, util.Ext(fi.name), PhotoMeta{OriginalFilename: fi.name})
	f.Close()
	if err != nil {
		return err
	}

	if err := os.Remove(fi.path); err != nil {
		return fmt.Errorf("imported but unable to remove from inbox: %w", err)
	}
	return nil
}

func (l *LocalManager) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// Initial scan
	if _, err := l.ScanInbox(); err != nil {
		slog.Warn("error while scanning inbox", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.ScanInbox(); err != nil {
				slog.Warn("error while scanning inbox", "error", err)
			}
		}
	}
}
