// Command pathwatch exercises the pathwatch engine end to end: watching
// live paths, inspecting how a path resolves, and probing the host's
// symlink traversal limit.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCommand = &cobra.Command{
	Use:   "pathwatch",
	Short: "Watch filesystem paths across renames, symlinks, and remounts",
}

func init() {
	cobra.EnableCommandSorting = false
	rootCommand.AddCommand(watchCommand, inspectCommand, probeSymlinkMaxCommand)
}
