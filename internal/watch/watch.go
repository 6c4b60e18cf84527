// Package watch reports changes below source roots so indexed documents can
// be refreshed as they are edited. It uses raw inotify with epoll; new
// directories are watched as they appear.
package watch

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Event is a change to a file or directory.
type Event struct {
	Path string
	Type EventType
	Dir  bool
	Err  error
}

// EventType identifies the kind of change.
type EventType int

const (
	// EventChanged is sent when a file was written and closed, or moved or
	// created below a watched directory.
	EventChanged EventType = iota
	// EventRemoved is sent when an entry was deleted or moved away.
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

const dirMask = unix.IN_CLOSE_WRITE | unix.IN_CREATE | unix.IN_MOVED_TO |
	unix.IN_DELETE | unix.IN_MOVED_FROM | unix.IN_ONLYDIR

// Watcher watches directory trees.
type Watcher struct {
	inotifyFd int
	epollFd   int
	// Skip, when set, leaves directories it returns true for unwatched.
	Skip func(name string) bool

	mu      sync.Mutex
	watches map[int32]string // wd -> directory
}

// New creates an inotify-based watcher.
func New() (*Watcher, error) {
	ifd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}

	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(ifd)
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	event := unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(ifd),
	}
	if err := unix.EpollCtl(efd, unix.EPOLL_CTL_ADD, ifd, &event); err != nil {
		unix.Close(efd)
		unix.Close(ifd)
		return nil, fmt.Errorf("epoll_ctl: %w", err)
	}

	return &Watcher{
		inotifyFd: ifd,
		epollFd:   efd,
		watches:   make(map[int32]string),
	}, nil
}

// AddTree watches root and every directory below it.
func (w *Watcher) AddTree(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil // vanished while walking
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.Skip != nil && w.Skip(d.Name()) {
			return filepath.SkipDir
		}
		return w.add(p)
	})
}

func (w *Watcher) add(dir string) error {
	wd, err := unix.InotifyAddWatch(w.inotifyFd, dir, dirMask)
	if err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", dir, err)
	}
	w.mu.Lock()
	w.watches[int32(wd)] = dir
	w.mu.Unlock()
	return nil
}

// Len returns the number of watched directories.
func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watches)
}

// Events returns a channel of changes. It is closed when ctx is done or
// reading inotify fails, the latter after an event carrying the error.
// Directories created below a watched one are watched before their event
// is sent.
func (w *Watcher) Events(ctx context.Context) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		buf := make([]byte, 64*1024)
		events := make([]unix.EpollEvent, 1)

		for ctx.Err() == nil {
			n, err := unix.EpollWait(w.epollFd, events, 100)
			if err != nil {
				if errors.Is(err, unix.EINTR) {
					continue
				}
				w.send(ctx, ch, Event{Err: fmt.Errorf("epoll_wait: %w", err)})
				return
			}
			if n == 0 {
				continue
			}

			nbytes, err := unix.Read(w.inotifyFd, buf)
			if err != nil {
				if errors.Is(err, unix.EAGAIN) {
					continue
				}
				w.send(ctx, ch, Event{Err: fmt.Errorf("read inotify: %w", err)})
				return
			}
			for _, ev := range w.parseEvents(buf[:nbytes]) {
				if ev.Dir && ev.Type == EventChanged {
					if err := w.AddTree(ev.Path); err != nil {
						ev.Err = err
					}
				}
				if !w.send(ctx, ch, ev) {
					return
				}
			}
		}
	}()
	return ch
}

func (w *Watcher) send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// inotify event header layout:
//
//	int32  wd       (offset 0)
//	uint32 mask     (offset 4)
//	uint32 cookie   (offset 8)
//	uint32 len      (offset 12)
//	char   name[]   (offset 16)
const inotifyEventSize = 16

func (w *Watcher) parseEvents(buf []byte) []Event {
	var out []Event
	offset := 0
	for offset+inotifyEventSize <= len(buf) {
		wd := int32(binary.NativeEndian.Uint32(buf[offset:]))
		mask := binary.NativeEndian.Uint32(buf[offset+4:])
		nameLen := int(binary.NativeEndian.Uint32(buf[offset+12:]))

		var name string
		if nameLen > 0 {
			nameStart := offset + inotifyEventSize
			nameEnd := nameStart + nameLen
			if nameEnd > len(buf) {
				break
			}
			nameBytes := buf[nameStart:nameEnd]
			for i, b := range nameBytes {
				if b == 0 {
					nameBytes = nameBytes[:i]
					break
				}
			}
			name = string(nameBytes)
		}
		offset += inotifyEventSize + nameLen

		w.mu.Lock()
		dir, ok := w.watches[wd]
		if mask&unix.IN_IGNORED != 0 {
			delete(w.watches, wd)
		}
		w.mu.Unlock()
		if !ok || name == "" {
			continue
		}

		ev := Event{Path: filepath.Join(dir, name), Dir: mask&unix.IN_ISDIR != 0}
		switch {
		case mask&(unix.IN_DELETE|unix.IN_MOVED_FROM) != 0:
			ev.Type = EventRemoved
		case mask&(unix.IN_CLOSE_WRITE|unix.IN_MOVED_TO) != 0:
			ev.Type = EventChanged
		case mask&unix.IN_CREATE != 0 && ev.Dir:
			// New files are reported once written; new directories now.
			ev.Type = EventChanged
		default:
			continue
		}
		if ev.Dir && w.Skip != nil && w.Skip(name) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Close releases the watcher. The Events channel closes once its context is
// done.
func (w *Watcher) Close() error {
	unix.Close(w.epollFd)
	return unix.Close(w.inotifyFd)
}
