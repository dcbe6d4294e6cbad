package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathwatch/pathwatch"
)

var probeSymlinkMaxCommand = &cobra.Command{
	Use:   "probe-symlinkmax",
	Short: "Print the host's maximum symlink traversal depth, as detected by the resolver",
	Args:  cobra.NoArgs,
	RunE:  probeSymlinkMaxMain,
}

func probeSymlinkMaxMain(command *cobra.Command, arguments []string) error {
	max, err := pathwatch.DetectSymlinkMax()
	if err != nil {
		return fmt.Errorf("probing symlink max: %w", err)
	}
	fmt.Println(max)
	return nil
}
