package pathwatch

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// inotifyBuiltinMask is the union of every flag the kernel itself knows
// about, used only to find a free bit range for the synthetic PATH_* flags
// below (see newwatcher.py's IN_LINK_CHANGED computation).
const inotifyBuiltinMask uint32 = unix.IN_ALL_EVENTS |
	unix.IN_UNMOUNT |
	unix.IN_Q_OVERFLOW |
	unix.IN_IGNORED |
	unix.IN_ONLYDIR |
	unix.IN_DONT_FOLLOW |
	unix.IN_EXCL_UNLINK |
	unix.IN_MASK_ADD |
	unix.IN_MASK_CREATE |
	unix.IN_ISDIR |
	unix.IN_ONESHOT

// syntheticBase is the lowest bit, found by doubling from 1, that starts a
// run of five consecutive bits none of which the kernel defines. The kernel
// itself uses bit 31 (IN_ONESHOT), so a uint32 mask has no room strictly
// above every kernel flag; the five PATH_* flags take the first free run
// instead (bits 16 to 20 on Linux).
var syntheticBase = func() uint32 {
	const run = 0x1f // five consecutive bits, one per PATH_* flag
	b := uint32(1)
	for (b*run)&inotifyBuiltinMask != 0 {
		b <<= 1
	}
	return b
}()

// Synthetic event flags, reported only by this package, never by the
// kernel. They occupy bit positions no kernel-defined flag uses. These
// can't be plain constants since syntheticBase itself is computed at init
// time rather than being a compile-time constant.
var (
	// PathMovedFromMask reports MOVED_FROM/MOVE_SELF on a traversed link.
	PathMovedFromMask = syntheticBase << 0
	// PathMovedToMask reports MOVED_TO on a traversed link.
	PathMovedToMask = syntheticBase << 1
	// PathCreateMask reports CREATE on a traversed link.
	PathCreateMask = syntheticBase << 2
	// PathDeleteMask reports DELETE/DELETE_SELF/IGNORED on a traversed link.
	PathDeleteMask = syntheticBase << 3
	// PathUnmountMask reports UNMOUNT on a traversed link.
	PathUnmountMask = syntheticBase << 4
	// PathChangedMask is the union of all PATH_* flags above; set whenever
	// any of them fires.
	PathChangedMask = PathMovedFromMask | PathMovedToMask | PathCreateMask | PathDeleteMask | PathUnmountMask
)

// RawEvent is the shape of an event as delivered by the kernel binding:
// watch descriptor, mask, rename cookie, and the name of the changed child
// (empty if the event concerns the watched entry itself).
type RawEvent struct {
	Wd     int32
	Mask   uint32
	Cookie uint32
	Name   string
}

// Event is a public event delivered by Watcher.Read. Mask may carry either
// raw kernel flags (IN_*) or synthetic Path*Mask flags (or both, OR'd with
// IN_ISDIR).
type Event struct {
	// Path is the original user-requested path this event concerns.
	Path string
	// Mask is the (possibly synthetic) event mask.
	Mask uint32
	// Cookie links a MOVED_FROM/MOVED_TO pair; zero for synthetic events.
	Cookie uint32
	// Name is, for a raw leaf event, the child name the kernel reported
	// (may be empty); for a synthetic PATH_* event it is the full pathname
	// of the component that changed.
	Name string
	// Raw is the originating kernel event: the event itself for a raw or
	// queue-global (wd=-1) event, and the triggering kernel event for a
	// synthetic PATH_* event. Watcher.Read never returns an Event with a
	// nil Raw.
	Raw *RawEvent
}

// IsSynthetic reports whether this event was manufactured by the
// path-tracking layer rather than delivered verbatim from the kernel.
func (e Event) IsSynthetic() bool { return e.Mask&PathChangedMask != 0 }

func (e Event) String() string {
	names := DecodeMask(e.Mask)
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (name=%s)", e.Path, strings.Join(names, "|"), e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(names, "|"))
}

// classifyIntermediate maps a raw (or synthetic-triggering) mask to the
// synthetic PATH_* category per spec section 4.4's table, OR-ing in ISDIR
// when present. Returns 0 if mask matches none of the rows (caller should
// not emit a synthetic event in that case).
func classifyIntermediate(mask uint32) uint32 {
	var synthetic uint32
	switch {
	case mask&(unix.IN_MOVED_FROM|unix.IN_MOVE_SELF) != 0:
		synthetic = PathMovedFromMask
	case mask&unix.IN_MOVED_TO != 0:
		synthetic = PathMovedToMask
	case mask&(unix.IN_DELETE|unix.IN_DELETE_SELF|unix.IN_IGNORED) != 0:
		synthetic = PathDeleteMask
	case mask&unix.IN_CREATE != 0:
		synthetic = PathCreateMask
	case mask&unix.IN_UNMOUNT != 0:
		synthetic = PathUnmountMask
	}
	if synthetic != 0 && mask&unix.IN_ISDIR != 0 {
		synthetic |= unix.IN_ISDIR
	}
	return synthetic
}

// healable reports whether a future filesystem state could repair the
// chain after this event, per spec section 4.4 step 3.
func healable(mask uint32) bool {
	return mask&(unix.IN_MOVED_TO|unix.IN_CREATE|unix.IN_UNMOUNT) != 0
}
