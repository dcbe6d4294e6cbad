package pathwatch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type visitedStep struct {
	dir       string
	remaining string
}

func collectSteps(t *testing.T, dir, remaining string) ([]visitedStep, int, error) {
	t.Helper()
	var steps []visitedStep
	n, err := ResolvePath(dir, remaining, 0, func(d, rem string, linkCount int) error {
		steps = append(steps, visitedStep{d, rem})
		return nil
	})
	return steps, n, err
}

func TestResolvePathPlainDirectory(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "testfile"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	steps, n, err := collectSteps(t, tmp, "testfile")
	if err != nil {
		t.Fatalf("ResolvePath: %s", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 symlinks followed, got %d", n)
	}
	last := steps[len(steps)-1]
	want := filepath.Join(tmp, "testfile")
	if last.dir != want || last.remaining != "" {
		t.Fatalf("final step = %+v, want dir=%s remaining=\"\"", last, want)
	}
}

func TestResolvePathFollowsRelativeSymlink(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "testfile"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("testfile", filepath.Join(tmp, "link")); err != nil {
		t.Fatal(err)
	}

	steps, n, err := collectSteps(t, tmp, "link")
	if err != nil {
		t.Fatalf("ResolvePath: %s", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 symlink followed, got %d", n)
	}
	last := steps[len(steps)-1]
	want := filepath.Join(tmp, "testfile")
	if last.dir != want || last.remaining != "" {
		t.Fatalf("final step = %+v, want dir=%s remaining=\"\"", last, want)
	}
}

func TestResolvePathFollowsSymlinkChain(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "testfile"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("testfile", filepath.Join(tmp, "link3")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("link3", filepath.Join(tmp, "link2")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("link2", filepath.Join(tmp, "link1")); err != nil {
		t.Fatal(err)
	}

	steps, n, err := collectSteps(t, tmp, "link1")
	if err != nil {
		t.Fatalf("ResolvePath: %s", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 symlinks followed, got %d", n)
	}
	last := steps[len(steps)-1]
	want := filepath.Join(tmp, "testfile")
	if last.dir != want || last.remaining != "" {
		t.Fatalf("final step = %+v, want dir=%s remaining=\"\"", last, want)
	}
}

func TestResolvePathSymlinkToSubdir(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "real", "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "real", "sub", "testfile"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("real", filepath.Join(tmp, "link")); err != nil {
		t.Fatal(err)
	}

	steps, n, err := collectSteps(t, tmp, "link/sub/testfile")
	if err != nil {
		t.Fatalf("ResolvePath: %s", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 symlink followed, got %d", n)
	}
	last := steps[len(steps)-1]
	want := filepath.Join(tmp, "real", "sub", "testfile")
	if last.dir != want || last.remaining != "" {
		t.Fatalf("final step = %+v, want dir=%s remaining=\"\"", last, want)
	}
}

func TestResolvePathMissingComponent(t *testing.T) {
	tmp := t.TempDir()

	_, _, err := collectSteps(t, tmp, "nonexistent")
	var pme *PathMissingError
	if !errors.As(err, &pme) {
		t.Fatalf("got %v (%T), want *PathMissingError", err, err)
	}
}

func TestResolvePathNotADirectory(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "testfile"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := collectSteps(t, tmp, "testfile/child")
	var nde *NotADirectoryError
	if !errors.As(err, &nde) {
		t.Fatalf("got %v (%T), want *NotADirectoryError", err, err)
	}
}

func TestResolvePathSymlinkLoop(t *testing.T) {
	tmp := t.TempDir()
	if err := os.Symlink("loopb", filepath.Join(tmp, "loopa")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("loopa", filepath.Join(tmp, "loopb")); err != nil {
		t.Fatal(err)
	}

	_, _, err := collectSteps(t, tmp, "loopa")
	var sle *SymlinkLoopError
	if !errors.As(err, &sle) {
		t.Fatalf("got %v (%T), want *SymlinkLoopError", err, err)
	}
}

func TestResolvePathParentTraversal(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "testfile"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	steps, _, err := collectSteps(t, filepath.Join(tmp, "sub"), "../testfile")
	if err != nil {
		t.Fatalf("ResolvePath: %s", err)
	}
	last := steps[len(steps)-1]
	want := filepath.Join(tmp, "testfile")
	if last.dir != want || last.remaining != "" {
		t.Fatalf("final step = %+v, want dir=%s remaining=\"\"", last, want)
	}
}

func TestResolvePathResumesFromCapturedTriple(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "a", "b", "testfile"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var captured visitedStep
	_, _, err := ResolvePath(tmp, "a/b/testfile", 0, func(d, rem string, lc int) error {
		if rem == "b/testfile" {
			captured = visitedStep{d, rem}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ResolvePath: %s", err)
	}

	// Resuming from the captured (dir, remaining) triple must reach the same
	// final directory as the original, uninterrupted walk.
	steps, _, err := collectSteps(t, captured.dir, captured.remaining)
	if err != nil {
		t.Fatalf("resumed ResolvePath: %s", err)
	}
	last := steps[len(steps)-1]
	want := filepath.Join(tmp, "a", "b", "testfile")
	if last.dir != want {
		t.Fatalf("resumed final dir = %s, want %s", last.dir, want)
	}
}
