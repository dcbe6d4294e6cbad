package pathwatch

import "golang.org/x/sys/unix"

// flagNames is a table-driven mask decoder in the style of the teacher's
// internal/debug_linux.go, extended with the synthetic PATH_* flags this
// package adds on top of the kernel's own.
var flagNames = []struct {
	name string
	mask uint32
}{
	{"IN_ACCESS", unix.IN_ACCESS},
	{"IN_MODIFY", unix.IN_MODIFY},
	{"IN_ATTRIB", unix.IN_ATTRIB},
	{"IN_CLOSE_WRITE", unix.IN_CLOSE_WRITE},
	{"IN_CLOSE_NOWRITE", unix.IN_CLOSE_NOWRITE},
	{"IN_OPEN", unix.IN_OPEN},
	{"IN_MOVED_FROM", unix.IN_MOVED_FROM},
	{"IN_MOVED_TO", unix.IN_MOVED_TO},
	{"IN_CREATE", unix.IN_CREATE},
	{"IN_DELETE", unix.IN_DELETE},
	{"IN_DELETE_SELF", unix.IN_DELETE_SELF},
	{"IN_MOVE_SELF", unix.IN_MOVE_SELF},
	{"IN_UNMOUNT", unix.IN_UNMOUNT},
	{"IN_Q_OVERFLOW", unix.IN_Q_OVERFLOW},
	{"IN_IGNORED", unix.IN_IGNORED},
	{"IN_ONLYDIR", unix.IN_ONLYDIR},
	{"IN_DONT_FOLLOW", unix.IN_DONT_FOLLOW},
	{"IN_EXCL_UNLINK", unix.IN_EXCL_UNLINK},
	{"IN_MASK_ADD", unix.IN_MASK_ADD},
	{"IN_ISDIR", unix.IN_ISDIR},
	{"IN_ONESHOT", unix.IN_ONESHOT},
	{"PATH_MOVED_FROM", PathMovedFromMask},
	{"PATH_MOVED_TO", PathMovedToMask},
	{"PATH_CREATE", PathCreateMask},
	{"PATH_DELETE", PathDeleteMask},
	{"PATH_UNMOUNT", PathUnmountMask},
}

// DecodeMask returns the names of every flag set in mask, kernel flags
// first in kernel-table order followed by any synthetic PATH_* flags.
func DecodeMask(mask uint32) []string {
	var names []string
	for _, f := range flagNames {
		if mask&f.mask == f.mask && f.mask != 0 {
			names = append(names, f.name)
		}
	}
	return names
}
