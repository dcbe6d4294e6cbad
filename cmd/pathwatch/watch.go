package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/pathwatch/pathwatch"
	"github.com/pathwatch/pathwatch/internal/wconfig"
)

var watchConfiguration struct {
	events      []string
	configPath  string
	rememberCwd bool
	verbose     bool
}

var watchCommand = &cobra.Command{
	Use:   "watch <path>...",
	Short: "Watch one or more paths and print events as they occur",
	RunE:  watchMain,
}

func init() {
	flags := watchCommand.Flags()
	flags.StringSliceVarP(&watchConfiguration.events, "events", "e", nil,
		"event names to subscribe to (default: a broad set covering creation, removal, renames, and writes)")
	flags.StringVarP(&watchConfiguration.configPath, "config", "c", "",
		"YAML config file listing additional paths to watch at startup")
	flags.BoolVar(&watchConfiguration.rememberCwd, "remember-cwd", false,
		"resolve relative paths against the working directory at startup rather than on every reconnect")
	flags.BoolVarP(&watchConfiguration.verbose, "verbose", "v", false,
		"log at debug level, which adds a line for each path watch as it is added")
}

// eventNames maps the event identifiers accepted on the command line and in
// YAML config to their raw inotify mask bits.
var eventNames = map[string]uint32{
	"IN_ACCESS":        unix.IN_ACCESS,
	"IN_MODIFY":        unix.IN_MODIFY,
	"IN_ATTRIB":        unix.IN_ATTRIB,
	"IN_CLOSE_WRITE":   unix.IN_CLOSE_WRITE,
	"IN_CLOSE_NOWRITE": unix.IN_CLOSE_NOWRITE,
	"IN_OPEN":          unix.IN_OPEN,
	"IN_MOVED_FROM":    unix.IN_MOVED_FROM,
	"IN_MOVED_TO":      unix.IN_MOVED_TO,
	"IN_CREATE":        unix.IN_CREATE,
	"IN_DELETE":        unix.IN_DELETE,
	"IN_DELETE_SELF":   unix.IN_DELETE_SELF,
	"IN_MOVE_SELF":     unix.IN_MOVE_SELF,
}

// defaultWatchMask covers the events most callers expect from "watch this
// path": creation, removal, renames and content writes, but not every read
// access (which is noisy and rarely wanted by default).
const defaultWatchMask = uint32(unix.IN_CREATE | unix.IN_DELETE | unix.IN_DELETE_SELF |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_MOVE_SELF | unix.IN_CLOSE_WRITE | unix.IN_ATTRIB)

func parseEventMask(names []string) (uint32, error) {
	if len(names) == 0 {
		return defaultWatchMask, nil
	}
	var mask uint32
	for _, n := range names {
		bit, ok := eventNames[strings.ToUpper(n)]
		if !ok {
			return 0, fmt.Errorf("unknown event name %q", n)
		}
		mask |= bit
	}
	return mask, nil
}

func watchMain(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 && watchConfiguration.configPath == "" {
		return fmt.Errorf("watch requires at least one path, or a --config file listing some")
	}

	level := slog.LevelInfo
	if watchConfiguration.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	mask, err := parseEventMask(watchConfiguration.events)
	if err != nil {
		return err
	}

	watcher, err := pathwatch.Open(pathwatch.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range arguments {
		if _, err := watcher.Add(path, mask, watchConfiguration.rememberCwd); err != nil {
			return fmt.Errorf("watching %q: %w", path, err)
		}
	}

	if watchConfiguration.configPath != "" {
		cfg, err := wconfig.ParseFile(watchConfiguration.configPath)
		if err != nil {
			return err
		}
		for _, rule := range cfg.Watches {
			ruleMask, err := parseEventMask(rule.Events)
			if err != nil {
				return fmt.Errorf("config watch for %q: %w", rule.Path, err)
			}
			if _, err := watcher.Add(rule.Path, ruleMask, rule.RememberCurdir); err != nil {
				return fmt.Errorf("watching %q: %w", rule.Path, err)
			}
		}
	}

	sessionID := uuid.New().String()[:8]
	rawColor := color.New(color.FgCyan)
	syntheticColor := color.New(color.FgYellow, color.Bold)

	fmt.Printf("[%s] watching %d path(s), press Ctrl-C to stop\n", sessionID, len(watcher.Watches()))

	for {
		events, err := watcher.Read(true)
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		for _, evt := range events {
			if evt.IsSynthetic() {
				syntheticColor.Printf("[%s] %s -- target may need reconnecting\n", sessionID, evt)
			} else {
				rawColor.Printf("[%s] %s\n", sessionID, evt)
			}
		}
	}
}
