package pathwatch

import (
	"errors"
	"os"
	"strings"
)

// Visit is called once for every filesystem location ResolvePath traverses.
// dir is an already-resolved, symlink-free absolute directory; remaining is
// the suffix of the original path not yet traversed (empty once dir is the
// final target); linkCount is the running total of symlinks followed so far
// (for the caller to capture onto the Link it creates at this step, so a
// later resumption restarts the budget from exactly this point). Returning
// a non-nil error aborts resolution; the error is returned from ResolvePath
// unchanged.
type Visit func(dir, remaining string, linkCount int) error

// resolveHardCap bounds recursion depth against a pathological (but
// kernel-permitted) chain regardless of what the caller's own symlinkMax
// policy says; PathWatch.reconnect is responsible for the real comparison
// against DetectSymlinkMax, per spec section 4.1's "the Watcher compares it
// against a probed system maximum" — this is only a safety net.
const resolveHardCap = 4096

// ResolvePath walks dir/remaining, following every symlink it encounters,
// calling visit for each filesystem location traversed (see spec section
// 4.1). It is restartable: passing back a previously observed (dir,
// remaining, linkCount) resumes exactly where that triple left off, with
// fresh active/known-link caches as spec.md requires ("a caller-supplied
// set ... currently being resolved" is reset on each top-level call).
//
// linkCount is the running total of symlinks followed so far; ResolvePath
// returns the final total. visit receives the running total at each step,
// which is where a caller can compare it against its own traversal budget;
// resolveHardCap stops a runaway chain regardless.
func ResolvePath(dir, remaining string, linkCount int, visit Visit) (int, error) {
	active := map[string]bool{}
	known := map[string]string{}
	lc := linkCount
	_, err := resolveFrom(dir, remaining, active, known, &lc, true, visit)
	return lc, err
}

// resolveFrom is the recursive core. topLevel controls whether the
// terminal (remaining == "") step is reported to visit: a nested call
// resolving a single symlink's own target in isolation must NOT report its
// terminal step, because the enclosing call will naturally re-derive and
// report the equivalent (finalDir, callerRest) pair on its own next
// iteration — reporting both would duplicate one visit. This mirrors how
// the original generator-based implementation withheld the last item of
// each inner resolution and let the outer loop's own next yield stand in
// for it.
func resolveFrom(dir, remaining string, active map[string]bool, known map[string]string, linkCount *int, topLevel bool, visit Visit) (string, error) {
	for {
		if isAbsolute(remaining) {
			dir = "/"
			remaining = strings.TrimPrefix(remaining, "/")
		}

		if remaining != "" || topLevel {
			if err := visit(dir, remaining, *linkCount); err != nil {
				return dir, err
			}
		}
		if remaining == "" {
			return dir, nil
		}

		first, rest := splitFirst(remaining)
		if first == ".." {
			dir = popDir(dir)
			remaining = rest
			continue
		}

		childPath := joinPath(dir, first)
		target, rerr := os.Readlink(childPath)
		if rerr != nil {
			switch {
			case errors.Is(rerr, errEINVAL):
				// Not a symlink; treat as an ordinary directory/file component.
				dir = childPath
				remaining = rest
				continue
			case errors.Is(rerr, errENOENT):
				return dir, &PathMissingError{Path: childPath}
			case errors.Is(rerr, errENOTDIR):
				if isDir(dir) {
					return dir, &ConcurrentModificationError{Path: childPath}
				}
				return dir, &NotADirectoryError{Path: dir}
			case errors.Is(rerr, errELOOP):
				return dir, &ConcurrentModificationError{Path: childPath}
			default:
				return dir, rerr
			}
		}

		// childPath is a symlink.
		if active[childPath] {
			return dir, &SymlinkLoopError{Path: childPath}
		}
		callerRest := rest

		if cached, ok := known[childPath]; ok {
			dir = cached
			remaining = callerRest
			continue
		}

		*linkCount++
		if *linkCount > resolveHardCap {
			return dir, &SymlinkLoopError{Path: childPath}
		}

		nestedActive := make(map[string]bool, len(active)+1)
		for k := range active {
			nestedActive[k] = true
		}
		nestedActive[childPath] = true

		wrapped := func(innerDir, innerRemaining string, innerLinkCount int) error {
			return visit(innerDir, joinRemaining(innerRemaining, callerRest), innerLinkCount)
		}

		finalDir, err := resolveFrom(dir, target, nestedActive, known, linkCount, false, wrapped)
		if err != nil {
			return finalDir, err
		}
		known[childPath] = finalDir
		dir = finalDir
		remaining = callerRest
	}
}

func isAbsolute(p string) bool { return strings.HasPrefix(p, "/") }

// splitFirst splits remaining into its first component and the rest, using
// "/" as separator, treating repeated or trailing separators as empty
// components is avoided by the same normalization spec.md assumes of its
// pathlib-based original: callers never hand us "" or "//" segments.
func splitFirst(remaining string) (first, rest string) {
	if i := strings.IndexByte(remaining, '/'); i >= 0 {
		return remaining[:i], remaining[i+1:]
	}
	return remaining, ""
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func joinRemaining(remaining, trailer string) string {
	switch {
	case remaining == "":
		return trailer
	case trailer == "":
		return remaining
	default:
		return remaining + "/" + trailer
	}
}

// popDir returns the parent of dir, an already-absolute, already-clean
// directory path. "/.." stays at "/" for OS parity, per spec section 4.1 —
// since dir is always kept absolute and normalized here (PathWatch resolves
// any starting "." to a real absolute directory before calling
// ResolvePath), this is simply: popping the last component, with "/"
// popping to itself.
func popDir(dir string) string {
	if dir == "/" {
		return "/"
	}
	i := strings.LastIndexByte(dir, '/')
	if i <= 0 {
		return "/"
	}
	return dir[:i]
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
