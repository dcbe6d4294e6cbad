package pathwatch

import (
	"errors"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/pathwatch/pathwatch/internal/raw"
)

// Watcher is the top-level façade: it owns the kernel handle, the
// descriptor table, the set of PathWatches, and drives the read loop and
// its reconnection fixpoint. A Watcher is not safe for concurrent entry
// from multiple goroutines (spec section 5); callers wanting to multiplex
// with other I/O use Fd in their own poll/select loop and call
// Read(false).
//
// Grounded on pathwatcher.py's PathWatcher for the method surface and on
// backend_inotify.go's Watcher for Go idiom (exported methods, no locking
// beyond what the teacher itself guards).
type Watcher struct {
	raw         *raw.Handle
	descriptors map[int32]*Descriptor
	watches     map[string]*PathWatch

	reconnectList []*PathWatch

	buffered       []Event
	pendingIgnored int

	symlinkMax int
	logger     *slog.Logger
}

// Option configures a Watcher at Open time.
type Option func(*Watcher)

// WithLogger attaches a structured logger. The Watcher logs each path
// watch as it is added (debug), a failed kernel watch removal (warn) and a
// queue overflow (warn). Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithSymlinkMax overrides the probed system symlink limit, mainly for
// tests that want a small, deterministic bound instead of paying for
// DetectSymlinkMax's temp-directory probe.
func WithSymlinkMax(n int) Option {
	return func(w *Watcher) { w.symlinkMax = n }
}

// Open creates a new Watcher backed by a fresh inotify instance.
func Open(opts ...Option) (*Watcher, error) {
	h, err := raw.Open()
	if err != nil {
		return nil, &KernelError{Op: "init", Err: err}
	}
	w := &Watcher{
		raw:         h,
		descriptors: make(map[int32]*Descriptor),
		watches:     make(map[string]*PathWatch),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.symlinkMax == 0 {
		max, err := DetectSymlinkMax()
		if err != nil {
			h.Close()
			return nil, err
		}
		w.symlinkMax = max
	}
	return w, nil
}

// Add registers path for watching under mask. Idempotent: adding the same
// path again just updates its mask (see Update).
func (w *Watcher) Add(path string, mask uint32, rememberCurdir bool) (string, error) {
	if pw, ok := w.watches[path]; ok {
		pw.update(mask, mask&unix.IN_MASK_ADD != 0, &rememberCurdir)
		return path, nil
	}
	pw, err := newPathWatch(w, path, mask, rememberCurdir)
	if err != nil {
		return "", err
	}
	w.watches[path] = pw
	w.logger.Debug("added path watch", "path", path, "mask", DecodeMask(mask))
	return path, nil
}

// Update replaces or OR-merges the mask for an already-watched path, and
// optionally flips whether it pins resolution to a recorded working
// directory. Pass nil for rememberCurdir to leave that setting unchanged.
func (w *Watcher) Update(path string, mask uint32, rememberCurdir *bool) error {
	pw, ok := w.watches[path]
	if !ok {
		return ErrNotWatched
	}
	pw.update(mask, mask&unix.IN_MASK_ADD != 0, rememberCurdir)
	return nil
}

// Remove detaches every Link of the PathWatch for path and forgets it.
func (w *Watcher) Remove(path string) error {
	pw, ok := w.watches[path]
	if !ok {
		return ErrNotWatched
	}
	pw.remove()
	delete(w.watches, path)
	return nil
}

// GetMask returns the current mask for an already-watched path.
func (w *Watcher) GetMask(path string) (uint32, error) {
	pw, ok := w.watches[path]
	if !ok {
		return 0, ErrNotWatched
	}
	return pw.mask, nil
}

// Watches returns every currently-watched user path.
func (w *Watcher) Watches() []string {
	out := make([]string, 0, len(w.watches))
	for p := range w.watches {
		out = append(out, p)
	}
	return out
}

// Fd returns the OS file descriptor backing this Watcher, for external
// poll/select use alongside Read(false).
func (w *Watcher) Fd() int { return w.raw.Fd() }

// Close releases the kernel handle. Outstanding PathWatches are not
// individually torn down; the kernel drops every watch on the descriptor
// itself when it is closed.
func (w *Watcher) Close() error {
	return w.raw.Close()
}

func (w *Watcher) attach(path string, mask uint32, link *Link) (*Descriptor, error) {
	wd, err := w.raw.AddWatch(path, mask)
	if err != nil {
		return nil, classifyAddWatchError(path, err)
	}
	d, ok := w.descriptors[wd]
	if !ok {
		d = newDescriptor(w, wd)
		w.descriptors[wd] = d
	}
	d.register(link)
	return d, nil
}

// classifyAddWatchError maps an AddWatch failure into the same taxonomy
// ResolvePath uses, since add_watch can itself race with the filesystem
// between resolution and the kernel call.
func classifyAddWatchError(path string, err error) error {
	switch {
	case errors.Is(err, errENOENT):
		return &PathMissingError{Path: path}
	case errors.Is(err, errENOTDIR):
		return &NotADirectoryError{Path: path}
	default:
		return &KernelError{Op: "add_watch", Err: err}
	}
}

func (w *Watcher) signalEmptyDescriptor(d *Descriptor) {
	if err := w.raw.RemoveWatch(d.wd); err != nil {
		w.logger.Warn("remove_watch failed", "wd", d.wd, "err", err)
	}
	w.pendingIgnored++
}

func (w *Watcher) forgetDescriptor(d *Descriptor) {
	delete(w.descriptors, d.wd)
	if w.pendingIgnored > 0 {
		w.pendingIgnored--
	}
}

func (w *Watcher) enqueueReconnect(pw *PathWatch) {
	if pw.inReconnectSet {
		return
	}
	pw.inReconnectSet = true
	w.reconnectList = append(w.reconnectList, pw)
}

func (w *Watcher) runReconnectPass() {
	pending := w.reconnectList
	w.reconnectList = nil
	for _, pw := range pending {
		pw.inReconnectSet = false
		pw.reconnect()
	}
}

// Read drains queued events, following spec section 4.5's coordination
// loop: a reconnection pass first, then kernel reads interleaved with
// further reconnection passes until every scheduled watch removal has been
// acknowledged and no PathWatch is left needing a rebuild.
func (w *Watcher) Read(block bool) ([]Event, error) {
	if len(w.buffered) > 0 {
		out := w.buffered
		w.buffered = nil
		return out, nil
	}

	w.runReconnectPass()
	if len(w.descriptors) == 0 {
		return nil, ErrNoWatches
	}

	var last *Event
	for {
		for {
			raws, err := w.raw.Read(block)
			if err != nil {
				return nil, &KernelError{Op: "read", Err: err}
			}
			for _, evt := range raws {
				var evs []Event
				if evt.Wd == -1 {
					evs = w.handleGlobalEvent(evt)
				} else if d, ok := w.descriptors[evt.Wd]; ok {
					evs = d.dispatch(evt)
				}
				for _, e := range evs {
					if last != nil && e.IsSynthetic() && last.IsSynthetic() && sameEvent(e, *last) {
						continue
					}
					w.buffered = append(w.buffered, e)
					copied := e
					last = &copied
				}
			}
			if w.pendingIgnored <= 0 {
				break
			}
		}
		w.runReconnectPass()
		if w.pendingIgnored <= 0 && len(w.reconnectList) == 0 {
			break
		}
	}

	out := w.buffered
	w.buffered = nil
	return out, nil
}

func sameEvent(a, b Event) bool {
	return a.Path == b.Path && a.Mask == b.Mask && a.Cookie == b.Cookie && a.Name == b.Name
}

// handleGlobalEvent handles a kernel event with wd=-1, i.e. one that isn't
// about any particular watch. In practice this is IN_Q_OVERFLOW: the
// kernel dropped events, so every PathWatch must conservatively assume its
// chain may be stale.
func (w *Watcher) handleGlobalEvent(evt raw.Event) []Event {
	out := []Event{{
		Mask:   evt.Mask,
		Cookie: evt.Cookie,
		Name:   evt.Name,
		Raw:    &RawEvent{Wd: evt.Wd, Mask: evt.Mask, Cookie: evt.Cookie, Name: evt.Name},
	}}
	if evt.Mask&unix.IN_Q_OVERFLOW != 0 {
		w.logger.Warn("inotify queue overflow, rebuilding every path watch")
		for _, pw := range w.watches {
			pw.queueOverflow()
		}
	}
	return out
}
