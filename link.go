package pathwatch

import "github.com/pathwatch/pathwatch/internal/raw"

// Link is one node in a PathWatch's resolution chain: one traversed
// directory component, one parent-traversal ("..") step, or the final
// leaf. It is deliberately near-stateless — everything interesting lives
// on the owning PathWatch — except for the descriptor reference, which is
// nilled out by remove() so a kernel event that arrives after removal but
// before the matching IGNORED is a silent no-op rather than a use of freed
// state.
//
// Grounded on pathwatcher.py's _Link.
type Link struct {
	idx        int
	watch      *PathWatch
	descriptor *Descriptor
	mask       uint32
	path       string // directory this Link watches
	name       string // child name of interest; "" for parent-traversal/leaf
	rest       string // unresolved suffix past this Link, for resumption
	linkCount  int    // symlink-traversal count captured at this step
}

func newLink(idx int, watch *PathWatch, mask uint32, path, name, rest string, linkCount int) (*Link, error) {
	l := &Link{
		idx:       idx,
		watch:     watch,
		mask:      mask,
		path:      path,
		name:      name,
		rest:      rest,
		linkCount: linkCount,
	}
	d, err := watch.watcher.attach(path, mask, l)
	if err != nil {
		return nil, err
	}
	l.descriptor = d
	return l, nil
}

// fullname is the path this Link actually concerns: path/name for a
// directory-entry Link, or just path for parent-traversal and leaf Links.
func (l *Link) fullname() string {
	if l.name != "" {
		return joinPath(l.path, l.name)
	}
	return l.path
}

// handleEvent delegates to the owning PathWatch, returning early if this
// Link was already removed (an event can legitimately arrive between
// unregister and the kernel's IGNORED acknowledgement).
func (l *Link) handleEvent(evt raw.Event) []Event {
	if l.descriptor == nil {
		return nil
	}
	return l.watch.handleEvent(evt, l)
}

func (l *Link) remove() {
	if l.descriptor == nil {
		return
	}
	l.descriptor.unregister(l)
	l.descriptor = nil
}
