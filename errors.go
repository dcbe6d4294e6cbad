package pathwatch

import (
	"errors"
	"fmt"
)

// PathMissingError reports that a path component does not exist.
type PathMissingError struct {
	Path string
}

func (e *PathMissingError) Error() string {
	return fmt.Sprintf("pathwatch: path not valid: %q does not exist", e.Path)
}

// NotADirectoryError reports that a non-terminal path component is not a
// directory.
type NotADirectoryError struct {
	Path string
}

func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("pathwatch: path not valid: %q is not a directory", e.Path)
}

// SymlinkLoopError reports that resolution would revisit a symlink already
// being resolved, or exceeded the system's symlink traversal limit.
type SymlinkLoopError struct {
	Path string
}

func (e *SymlinkLoopError) Error() string {
	return fmt.Sprintf("pathwatch: path not valid: the symlink at %q forms a symlink loop", e.Path)
}

// ConcurrentModificationError reports that the resolver observed a
// filesystem state inconsistent with a single, orderly walk (ENOTDIR on
// what should still be a directory, or ELOOP from the kernel itself). It is
// never surfaced to callers of Watcher: the read loop will eventually drain
// the inotify event that explains the change.
type ConcurrentModificationError struct {
	Path string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("pathwatch: a concurrent change was detected while traversing %q", e.Path)
}

// ErrNoWatches is returned by Watcher.Read when there are no live
// PathWatches to read events for.
var ErrNoWatches = errors.New("pathwatch: there are no paths being watched")

// ErrClosed names the closed-watcher condition. No Watcher method returns
// it: Watcher does not track whether Close was called, and a Read after
// Close fails with a *KernelError from the underlying read instead.
var ErrClosed = errors.New("pathwatch: watcher already closed")

// ErrNotWatched is returned by Remove, Update and GetMask for a path that
// isn't currently watched.
var ErrNotWatched = errors.New("pathwatch: path is not watched")

// KernelError wraps an error returned by the raw inotify syscalls that
// doesn't fall into one of the path-resolution categories above.
type KernelError struct {
	Op  string
	Err error
}

func (e *KernelError) Error() string { return fmt.Sprintf("pathwatch: %s: %s", e.Op, e.Err) }
func (e *KernelError) Unwrap() error { return e.Err }

// isConcurrentModification reports whether err is the one resolution fault
// that reconnect() treats as "try again later" rather than "give up": every
// other fault (PathMissing, NotADirectory, SymlinkLoop, a raw EACCES)
// marks the PathWatch UNWATCHABLE per spec section 7.
func isConcurrentModification(err error) bool {
	var cm *ConcurrentModificationError
	return errors.As(err, &cm)
}
