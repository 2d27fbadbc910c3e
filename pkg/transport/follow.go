package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Follower reads a file that is still being written, such as a raw capture
// from "ssetap listen --capture". At end of file it blocks until the file is
// written again instead of returning io.EOF.
//
// The stream ends with io.EOF when the Follower is closed or its context is
// cancelled.
type Follower struct {
	path    string
	file    *os.File
	watcher *fsnotify.Watcher

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Follow opens path for reading from the start and watches it for writes.
func Follow(ctx context.Context, path string) (*Follower, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	// Watch the parent directory so the follower survives editors and tools
	// that replace the file rather than appending to it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		file.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Follower{
		path:    filepath.Clean(path),
		file:    file,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Read returns whatever bytes are available, waiting for the next write
// when none are.
func (f *Follower) Read(p []byte) (int, error) {
	for {
		n, err := f.file.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			if f.ctx.Err() != nil {
				return 0, io.EOF
			}
			return 0, err
		}

		select {
		case <-f.ctx.Done():
			return 0, io.EOF

		case event, ok := <-f.watcher.Events:
			if !ok {
				return 0, io.EOF
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("watching %s: %w", f.path, err)
		}
	}
}

// Close stops the watcher and closes the file. Safe to call more than once.
func (f *Follower) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.cancel()
		err = errors.Join(f.watcher.Close(), f.file.Close())
	})
	return err
}
