package pathwatch

import (
	"golang.org/x/sys/unix"

	"github.com/pathwatch/pathwatch/internal/raw"
)

// Descriptor wraps one live kernel watch descriptor. The kernel coalesces
// watches on the same inode into one wd, so a Descriptor may multiplex
// Links from several PathWatches (or several Links within the same chain,
// for an intermediate symlink whose target shares a directory with its
// siblings). Dispatch de-mixes by child name so e.g. a CREATE for child
// "foo" only reaches Links registered under "foo" (or under the wildcard
// no-name key used by parent-traversal and leaf Links).
//
// Grounded on pathwatcher.py's _Descriptor.
type Descriptor struct {
	watcher *Watcher
	wd      int32
	mask    uint32
	active  bool
	byName  map[string][]*Link
}

func newDescriptor(w *Watcher, wd int32) *Descriptor {
	return &Descriptor{
		watcher: w,
		wd:      wd,
		active:  true,
		byName:  make(map[string][]*Link),
	}
}

// register adds link under link.name (empty string is the wildcard key
// used by parent-traversal and leaf Links) and widens the Descriptor's
// union mask.
func (d *Descriptor) register(link *Link) {
	d.mask |= link.mask
	d.byName[link.name] = append(d.byName[link.name], link)
}

// unregister removes link. When the Descriptor is left with no Links at
// all, it asks the Watcher to tear down the underlying kernel watch.
func (d *Descriptor) unregister(link *Link) {
	list := d.byName[link.name]
	for i, l := range list {
		if l == link {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(d.byName, link.name)
	} else {
		d.byName[link.name] = list
	}
	if len(d.byName) == 0 {
		d.watcher.signalEmptyDescriptor(d)
	}
}

// dispatch routes one raw kernel event to every registered Link whose mask
// intersects it (or the kernel's IGNORED acknowledgement, which every Link
// must see so it can notice its Descriptor went away). It iterates a
// snapshot of each name's Link list since a handler may mutate the
// Descriptor (via Link.remove) while dispatch is still in progress.
func (d *Descriptor) dispatch(evt raw.Event) []Event {
	var out []Event

	candidates := append([]*Link(nil), d.byName[evt.Name]...)
	if evt.Name != "" {
		candidates = append(candidates, d.byName[""]...)
	}

	for _, link := range candidates {
		if evt.Mask&(link.mask|unix.IN_IGNORED) == 0 {
			continue
		}
		out = append(out, link.handleEvent(evt)...)
	}

	if evt.Mask&unix.IN_IGNORED != 0 {
		d.active = false
		d.watcher.forgetDescriptor(d)
	}

	return out
}
