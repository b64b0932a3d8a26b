package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ReadWeightValue reads a file holding a single weight.
func ReadWeightValue(filename string) (float64, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return 0, err
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: expected a single weight: %w", filename, err)
	}
	return w, nil
}

// WatchWeight reloads the weight of identity from filename each time the
// file is written, until ctx is done. The directory is watched so editors
// that replace the file are followed. A file that cannot be parsed is
// logged and skipped.
func (p *Pipeline) WatchWeight(ctx context.Context, identity, filename string) error {
	if _, err := p.feature(identity); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", filename, err)
	}
	defer watcher.Close()

	target := filepath.Clean(filename)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filename, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			w, err := ReadWeightValue(target)
			if err != nil {
				log.Println("Weight watch:", err)
				continue
			}
			if err := p.ReloadWeight(identity, w); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("Weight watch:", err)
		}
	}
}
