package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// EventType represents the kind of change seen on the watched file
type EventType int

const (
	EventChanged EventType = iota
	EventRemoved
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event reports a change of the watched file
type Event struct {
	Type  EventType
	Path  string
	Error error
}

// DefaultSettle is how long the file must stay quiet before a change is reported
const DefaultSettle = 250 * time.Millisecond

// Watcher reports changes of a single file. It never reads the file; the
// receiver decides whether to reload.
type Watcher struct {
	path   string
	settle time.Duration
	fsw    *fsnotify.Watcher
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New starts watching path. The parent directory is watched so that files
// replaced by rename are still followed.
func New(ctx context.Context, path string, settle time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	if settle <= 0 {
		settle = DefaultSettle
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		path:   abs,
		settle: settle,
		fsw:    fsw,
		events: make(chan Event, 16),
		ctx:    ctx,
		cancel: cancel,
	}

	w.wg.Add(1)
	go w.run()

	log.Debug().Str("path", abs).Msg("watching file")
	return w, nil
}

// Events returns the channel for receiving file events
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Path returns the absolute path being watched
func (w *Watcher) Path() string {
	return w.path
}

// Stop stops the watcher and closes the events channel
func (w *Watcher) Stop() {
	w.once.Do(func() {
		w.cancel()
		w.fsw.Close()
		w.wg.Wait()
		close(w.events)
	})
}

// run coalesces bursts of fsnotify events into one Event per quiet period
func (w *Watcher) run() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending EventType
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}

			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				pending = EventRemoved
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				pending = EventChanged
			default:
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.settle)
			fire = timer.C

		case <-fire:
			fire = nil
			w.send(Event{Type: pending, Path: w.path})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.send(Event{Type: EventError, Path: w.path, Error: err})

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) send(ev Event) {
	log.Debug().Str("path", ev.Path).Stringer("type", ev.Type).Msg("file event")

	select {
	case w.events <- ev:
	case <-w.ctx.Done():
	}
}
