// Package raw wraps the Linux inotify syscalls the path-tracking engine
// treats as an external, assumed-available kernel binding: init, add_watch,
// remove_watch and a batched read. It is deliberately thin — no path
// tracking, no descriptor multiplexing, just the four kernel operations.
package raw

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Event mirrors one inotify_event as read from the kernel.
type Event struct {
	Wd     int32
	Mask   uint32
	Cookie uint32
	Name   string
}

// Handle owns one inotify instance.
type Handle struct {
	fd   int
	file *os.File
}

// Open creates a new inotify instance, non-blocking so that Read can honor
// both block=true and block=false from a single file descriptor via
// SetReadDeadline.
func Open() (*Handle, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, &os.SyscallError{Syscall: "inotify_init1", Err: err}
	}
	return &Handle{
		fd:   fd,
		file: os.NewFile(uintptr(fd), "inotify"),
	}, nil
}

// Fd returns the underlying file descriptor, for external poll/select use.
func (h *Handle) Fd() int { return h.fd }

// AddWatch attaches (or widens, via IN_MASK_ADD) a watch on path. The
// caller is responsible for ORing in whatever combination of IN_* flags it
// needs; AddWatch always adds IN_MASK_ADD so multiple callers sharing one
// inode widen rather than replace the watch's mask, per spec section 6.
func (h *Handle) AddWatch(path string, mask uint32) (int32, error) {
	wd, err := unix.InotifyAddWatch(h.fd, path, mask|unix.IN_MASK_ADD)
	if wd == -1 {
		return 0, err
	}
	return int32(wd), nil
}

// RemoveWatch asks the kernel to drop a watch descriptor. This is
// asynchronous: the caller must keep reading until the matching IN_IGNORED
// event arrives.
func (h *Handle) RemoveWatch(wd int32) error {
	_, err := unix.InotifyRmWatch(h.fd, uint32(wd))
	return err
}

// eventBufSize sizes Read's buffer for a large batch of events with long
// filenames; this matches the teacher's 4096-event buffer in
// backend_inotify.go.
const eventBufSize = unix.SizeofInotifyEvent * 4096

// Read performs exactly one read(2) against the inotify fd and returns
// every event contained in that read. If block is false, a read deadline
// in the past is set first so Read returns immediately with a
// possibly-empty slice instead of blocking; if block is true, the deadline
// is cleared.
func (h *Handle) Read(block bool) ([]Event, error) {
	if block {
		if err := h.file.SetReadDeadline(time.Time{}); err != nil {
			return nil, err
		}
	} else {
		if err := h.file.SetReadDeadline(time.Unix(1, 0)); err != nil {
			return nil, err
		}
	}

	var buf [eventBufSize]byte
	n, err := ignoringEINTR(func() (int, error) { return h.file.Read(buf[:]) })
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil
		}
		return nil, err
	}
	if n < unix.SizeofInotifyEvent {
		return nil, fmt.Errorf("pathwatch/raw: short read (%d bytes)", n)
	}

	var events []Event
	var offset uint32
	for offset <= uint32(n)-unix.SizeofInotifyEvent {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		nameLen := uint32(raw.Len)

		var name string
		if nameLen > 0 {
			nameBytes := buf[offset+unix.SizeofInotifyEvent : offset+unix.SizeofInotifyEvent+nameLen]
			name = trimNulls(nameBytes)
		}

		events = append(events, Event{
			Wd:     raw.Wd,
			Mask:   uint32(raw.Mask),
			Cookie: raw.Cookie,
			Name:   name,
		})

		offset += unix.SizeofInotifyEvent + nameLen
	}
	return events, nil
}

func trimNulls(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

// Close releases the inotify instance.
func (h *Handle) Close() error { return h.file.Close() }

// ignoringEINTR repeats fn if it fails with EINTR, matching the teacher's
// internal/unix2.go helper of the same purpose.
func ignoringEINTR(fn func() (int, error)) (int, error) {
	for {
		n, err := fn()
		if err != syscall.EINTR {
			return n, err
		}
	}
}
