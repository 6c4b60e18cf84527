// Package walker finds the documents of a source tree: regular text files,
// minus VCS metadata, hidden entries, .gitignore'd paths and anything the
// configured globs leave out.
package walker

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// FileEntry is a document found during traversal.
type FileEntry struct {
	// Path is the file system path.
	Path string
	// Rel is the slash path below the source root with a leading slash,
	// e.g. "/project/src/main.c".
	Rel string
}

// WalkOptions configures directory traversal behavior.
type WalkOptions struct {
	// Root is the source root that Rel paths are relative to. When empty,
	// each walked root is its own source root.
	Root     string
	NoIgnore bool // skip .gitignore processing
	Hidden   bool // include hidden files and directories
	Globs    Globs
	Workers  int // defaults to the number of CPUs
}

// Walk traverses roots and sends every document on the returned channel.
// Roots that are regular files are sent as they are, subject to the globs.
// Both channels are closed when the walk is done or ctx is canceled.
func Walk(ctx context.Context, roots []string, opts WalkOptions) (<-chan FileEntry, <-chan error) {
	fileCh := make(chan FileEntry, 256)
	errCh := make(chan error, 16)

	go func() {
		defer close(fileCh)
		defer close(errCh)

		pw := &parallelWalker{
			ctx:    ctx,
			fileCh: fileCh,
			errCh:  errCh,
			opts:   opts,
		}
		pw.cond = sync.NewCond(&pw.mu)

		for _, root := range roots {
			root = filepath.Clean(root)
			rel, err := relRoot(opts.Root, root)
			if err != nil {
				pw.report(&WalkError{Path: root, Err: err})
				continue
			}
			var st unix.Stat_t
			if err := unix.Stat(root, &st); err != nil {
				pw.report(&WalkError{Path: root, Err: err})
				continue
			}
			switch st.Mode & unix.S_IFMT {
			case unix.S_IFREG:
				pw.emit(FileEntry{Path: root, Rel: rel})
			case unix.S_IFDIR:
				var layers ignoreLayers
				if !opts.NoIgnore {
					layers = layers.child(root)
				}
				pw.enqueue(walkItem{path: root, rel: strings.TrimSuffix(rel, "/"), ignores: layers})
			}
		}

		pw.mu.Lock()
		if pw.pending == 0 {
			pw.done = true
		}
		pw.mu.Unlock()

		workers := opts.Workers
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				pw.worker()
			}()
		}
		wg.Wait()
	}()

	return fileCh, errCh
}

// relRoot returns the Rel path of root: "/" plus its path below the source
// root, or "/" when root is the source root itself.
func relRoot(source, root string) (string, error) {
	if source == "" {
		if st, err := filepathIsFile(root); err == nil && st {
			return "/" + filepath.Base(root), nil
		}
		return "/", nil
	}
	rel, err := filepath.Rel(filepath.Clean(source), root)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errOutsideRoot
	}
	if rel == "." {
		return "/", nil
	}
	return "/" + filepath.ToSlash(rel), nil
}

func filepathIsFile(p string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(p, &st); err != nil {
		return false, err
	}
	return st.Mode&unix.S_IFMT == unix.S_IFREG, nil
}

// walkItem is a directory waiting to be read.
type walkItem struct {
	path    string
	rel     string       // "" for the source root
	ignores ignoreLayers // nil with NoIgnore
}

// parallelWalker coordinates concurrent breadth-first traversal.
type parallelWalker struct {
	ctx    context.Context
	fileCh chan<- FileEntry
	errCh  chan<- error
	opts   WalkOptions

	mu      sync.Mutex
	queue   []walkItem
	pending int        // dirs enqueued but not yet fully processed
	cond    *sync.Cond // signaled when items are enqueued or work is done
	done    bool
}

func (pw *parallelWalker) enqueue(item walkItem) {
	pw.mu.Lock()
	pw.queue = append(pw.queue, item)
	pw.pending++
	pw.mu.Unlock()
	pw.cond.Signal()
}

// dequeue blocks until a directory is available. It returns false when all
// work is complete.
func (pw *parallelWalker) dequeue() (walkItem, bool) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	for len(pw.queue) == 0 && !pw.done {
		pw.cond.Wait()
	}
	if len(pw.queue) == 0 {
		return walkItem{}, false
	}
	item := pw.queue[0]
	pw.queue = pw.queue[1:]
	return item, true
}

func (pw *parallelWalker) finish() {
	pw.mu.Lock()
	pw.pending--
	if pw.pending == 0 && len(pw.queue) == 0 {
		pw.done = true
		pw.cond.Broadcast()
	}
	pw.mu.Unlock()
}

func (pw *parallelWalker) worker() {
	buf := make([]byte, 32*1024)
	for {
		item, ok := pw.dequeue()
		if !ok {
			return
		}
		if pw.ctx.Err() == nil {
			pw.processDir(item, buf)
		}
		pw.finish()
	}
}

// emit sends a document unless the walk was canceled.
func (pw *parallelWalker) emit(e FileEntry) {
	if !pw.opts.Globs.Match(e.Rel) {
		return
	}
	select {
	case pw.fileCh <- e:
	case <-pw.ctx.Done():
	}
}

func (pw *parallelWalker) report(err error) {
	select {
	case pw.errCh <- err:
	case <-pw.ctx.Done():
	}
}

// processDir reads one directory and dispatches its entries. The directory
// fd is closed before subdirectories are queued.
func (pw *parallelWalker) processDir(item walkItem, buf []byte) {
	fd, err := unix.Open(item.path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOATIME, 0)
	if err != nil {
		fd, err = unix.Open(item.path, unix.O_RDONLY|unix.O_DIRECTORY, 0)
		if err != nil {
			pw.report(&WalkError{Path: item.path, Err: err})
			return
		}
	}

	var subdirs []walkItem
	err = readDir(fd, buf, func(name string, typ uint8) {
		full := joinPath(item.path, name)
		isDir, isFile := false, false
		switch typ {
		case dtDir:
			isDir = true
		case dtReg:
			isFile = true
		case dtLnk, dtUnknown:
			var st unix.Stat_t
			if err := unix.Stat(full, &st); err != nil {
				if typ == dtUnknown {
					pw.report(&WalkError{Path: full, Err: err})
				}
				return // broken symlinks are skipped silently
			}
			isDir = st.Mode&unix.S_IFMT == unix.S_IFDIR
			isFile = st.Mode&unix.S_IFMT == unix.S_IFREG
		}

		switch {
		case isDir:
			if SkipDir(name, pw.opts.Hidden) || item.ignores.ignored(full, true) {
				return
			}
			sub := walkItem{path: full, rel: item.rel + "/" + name}
			if !pw.opts.NoIgnore {
				sub.ignores = item.ignores.child(full)
			}
			subdirs = append(subdirs, sub)
		case isFile:
			if !pw.opts.Hidden && name[0] == '.' {
				return
			}
			if IsBinaryExtension(name) || item.ignores.ignored(full, false) {
				return
			}
			pw.emit(FileEntry{Path: full, Rel: item.rel + "/" + name})
		}
	})
	unix.Close(fd)
	if err != nil {
		pw.report(&WalkError{Path: item.path, Err: err})
	}

	for _, sub := range subdirs {
		pw.enqueue(sub)
	}
}

// joinPath concatenates a directory and an entry name without cleaning.
func joinPath(dir, name string) string {
	if dir == "" || dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}

// SkipDir reports whether a directory is left out of the walk. VCS
// metadata is always skipped; other hidden directories unless hidden is set.
func SkipDir(name string, hidden bool) bool {
	switch name {
	case ".git", ".svn", ".hg", ".bzr", "CVS", "SCCS":
		return true
	}
	return !hidden && name[0] == '.'
}

var errOutsideRoot = errors.New("outside the source root")

// WalkError represents an error during directory traversal.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return "walk " + e.Path + ": " + e.Err.Error()
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// Accepts reports whether a walk of opts.Root would send the file at path.
// It applies the same rules as Walk, loading the .gitignore files on the way
// down from the root. path must lie below the root.
func Accepts(path string, opts WalkOptions) (FileEntry, bool) {
	root := filepath.Clean(opts.Root)
	path = filepath.Clean(path)
	rel, err := relRoot(root, path)
	if err != nil || rel == "/" {
		return FileEntry{}, false
	}

	var layers ignoreLayers
	if !opts.NoIgnore {
		layers = layers.child(root)
	}
	parts := strings.Split(strings.TrimPrefix(rel, "/"), "/")
	dir := root
	for _, name := range parts[:len(parts)-1] {
		dir = joinPath(dir, name)
		if SkipDir(name, opts.Hidden) || layers.ignored(dir, true) {
			return FileEntry{}, false
		}
		if !opts.NoIgnore {
			layers = layers.child(dir)
		}
	}

	name := parts[len(parts)-1]
	if !opts.Hidden && name[0] == '.' {
		return FileEntry{}, false
	}
	if IsBinaryExtension(name) || layers.ignored(path, false) || !opts.Globs.Match(rel) {
		return FileEntry{}, false
	}
	return FileEntry{Path: path, Rel: rel}, true
}
