package pathwatch

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/pathwatch/pathwatch/internal/raw"
)

// completion tracks how much of a PathWatch's chain currently reflects the
// live filesystem.
type completion int

const (
	rebuildNeeded completion = iota
	unwatchable
	fullyWatched
)

// PathWatch is the aggregate representing one user-requested path and its
// live resolution chain. Grounded on pathwatcher.py's _Watch, with the
// handle_event stale-index table and mask choices taken from spec section
// 4.4 rather than the 2013 Python source where the two disagree (spec.md
// is the more complete, authoritative requirements document).
type PathWatch struct {
	watcher *Watcher

	path           string // canonical user-requested path
	mask           uint32
	rememberCurdir bool
	recordedCwd    string // set once, only when rememberCurdir

	links      []*Link
	completion completion

	inReconnectSet bool
}

func newPathWatch(w *Watcher, path string, mask uint32, rememberCurdir bool) (*PathWatch, error) {
	pw := &PathWatch{
		watcher:        w,
		path:           path,
		mask:           mask,
		rememberCurdir: rememberCurdir,
		completion:     rebuildNeeded,
	}
	if rememberCurdir {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		pw.recordedCwd = cwd
	}
	pw.reconnect()
	return pw, nil
}

func (pw *PathWatch) currentCwd() (string, error) {
	if pw.rememberCurdir {
		return pw.recordedCwd, nil
	}
	return os.Getwd()
}

// reconnect drives the resolver from either the start of the user path or
// the last surviving Link's resumption triple, extending the chain as far
// as the current filesystem allows. It never returns an error to its
// caller: every resolution fault is absorbed into PathWatch state, per
// spec section 4.4.
func (pw *PathWatch) reconnect() {
	var dir, remaining string
	var linkCount int

	if len(pw.links) == 0 {
		cwd, err := pw.currentCwd()
		if err != nil {
			pw.completion = unwatchable
			return
		}
		// ResolvePath resets dir to "/" itself on an absolute remaining, so
		// passing pw.path through unmodified is enough for both relative and
		// absolute user paths.
		dir = cwd
		remaining = pw.path
	} else {
		// The last surviving Link is about to be re-derived from scratch (its
		// own (path, rest) step is exactly what ResolvePath will visit first),
		// so detach it before resuming: otherwise the fresh walk would append
		// a second Link for the same step instead of replacing it.
		last := pw.links[len(pw.links)-1]
		dir = last.path
		remaining = last.rest
		linkCount = last.linkCount
		last.remove()
		pw.links = pw.links[:len(pw.links)-1]
	}

	var finalDir string
	var reachedEnd bool

	_, err := ResolvePath(dir, remaining, linkCount, func(d, rem string, lc int) error {
		if lc > pw.watcher.symlinkMax {
			return &SymlinkLoopError{Path: pw.path}
		}
		if rem == "" {
			finalDir = d
			reachedEnd = true
			return nil
		}
		return pw.addPathElement(d, rem, lc)
	})

	if err != nil {
		if isConcurrentModification(err) {
			// Leave REBUILD_NEEDED: a causative kernel event is on its way
			// and will drive reconnect again.
			pw.completion = rebuildNeeded
			return
		}
		pw.completion = unwatchable
		return
	}

	if reachedEnd {
		pw.addLeaf(finalDir)
		pw.completion = fullyWatched
	}
}

// addPathElement registers one intermediate Link for the directory
// component or parent-traversal step at (dir, remaining).
func (pw *PathWatch) addPathElement(dir, remaining string, linkCount int) error {
	mask := uint32(unix.IN_UNMOUNT | unix.IN_ONLYDIR | unix.IN_EXCL_UNLINK)

	first, _ := splitFirst(remaining)
	var name string
	if first == ".." {
		mask |= unix.IN_MOVE_SELF | unix.IN_DELETE_SELF
	} else {
		mask |= unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_DELETE | unix.IN_CREATE
		name = first
	}

	link, err := newLink(len(pw.links), pw, mask, dir, name, remaining, linkCount)
	if err != nil {
		return err
	}
	pw.links = append(pw.links, link)
	return nil
}

// addLeaf registers the final Link carrying the user-requested mask.
func (pw *PathWatch) addLeaf(path string) {
	link, err := newLink(len(pw.links), pw, pw.mask, path, "", "", 0)
	if err != nil {
		pw.completion = unwatchable
		return
	}
	pw.links = append(pw.links, link)
}

// handleEvent implements the two cases from spec section 4.4.
func (pw *PathWatch) handleEvent(evt raw.Event, link *Link) []Event {
	if pw.completion == fullyWatched && link.idx == len(pw.links)-1 {
		return []Event{{
			Path:   pw.path,
			Mask:   evt.Mask,
			Cookie: evt.Cookie,
			Name:   evt.Name,
			Raw:    &RawEvent{Wd: evt.Wd, Mask: evt.Mask, Cookie: evt.Cookie, Name: evt.Name},
		}}
	}

	staleFrom := link.idx
	if evt.Mask&(unix.IN_MOVED_FROM|unix.IN_MOVED_TO|unix.IN_DELETE|unix.IN_CREATE) != 0 {
		staleFrom = link.idx + 1
	}

	for i := staleFrom; i < len(pw.links); i++ {
		pw.links[i].remove()
	}
	pw.links = pw.links[:staleFrom]
	if pw.completion > unwatchable {
		pw.completion = unwatchable
	}

	if healable(evt.Mask) {
		pw.completion = rebuildNeeded
		pw.watcher.enqueueReconnect(pw)
	}

	synthetic := classifyIntermediate(evt.Mask)
	if synthetic == 0 {
		return nil
	}

	return []Event{{
		Path:   pw.path,
		Mask:   synthetic,
		Cookie: 0,
		Name:   link.fullname(),
		Raw:    &RawEvent{Wd: evt.Wd, Mask: evt.Mask, Cookie: evt.Cookie, Name: evt.Name},
	}}
}

// update replaces or OR-merges the watch mask, and optionally changes
// whether this PathWatch pins resolution to a recorded working directory
// (spec section 6's update(path, mask?, remember_curdir?)). maskAdd mirrors
// the kernel's IN_MASK_ADD convention: when set, newMask is merged into the
// existing mask rather than replacing it.
func (pw *PathWatch) update(newMask uint32, maskAdd bool, rememberCurdir *bool) {
	if maskAdd {
		pw.mask |= newMask
	} else {
		pw.mask = newMask
	}
	if rememberCurdir != nil && *rememberCurdir != pw.rememberCurdir {
		pw.rememberCurdir = *rememberCurdir
		if pw.rememberCurdir {
			if cwd, err := os.Getwd(); err == nil {
				pw.recordedCwd = cwd
			}
		}
	}
	if pw.completion == fullyWatched && len(pw.links) > 0 {
		old := pw.links[len(pw.links)-1]
		link, err := newLink(old.idx, pw, pw.mask, old.path, "", "", old.linkCount)
		if err != nil {
			pw.completion = unwatchable
			old.remove()
			pw.links = pw.links[:len(pw.links)-1]
			return
		}
		pw.links[len(pw.links)-1] = link
		old.remove()
	}
}

// queueOverflow conservatively collapses the chain to its first Link
// (typically the starting directory) and schedules a rebuild, per spec
// section 4.4.
func (pw *PathWatch) queueOverflow() {
	for i := 1; i < len(pw.links); i++ {
		pw.links[i].remove()
	}
	if len(pw.links) > 1 {
		pw.links = pw.links[:1]
	}
	pw.completion = rebuildNeeded
	pw.watcher.enqueueReconnect(pw)
}

// remove detaches every Link; the PathWatch itself is forgotten by the
// Watcher's watch table.
func (pw *PathWatch) remove() {
	for _, l := range pw.links {
		l.remove()
	}
	pw.links = nil
	pw.completion = unwatchable
}

// logState writes a debug-level summary of this PathWatch (path,
// completion state, chain length) to logger. Nothing in this module calls
// it.
func (pw *PathWatch) logState(logger *slog.Logger) {
	logger.Debug("pathwatch state",
		"path", pw.path,
		"completion", pw.completion,
		"links", len(pw.links),
	)
}
