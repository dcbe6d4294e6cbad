package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pathwatch/pathwatch"
)

var inspectCommand = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Resolve a path once and print the chain of directories and symlinks discovered",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectMain,
}

func inspectMain(command *cobra.Command, arguments []string) error {
	target := arguments[0]

	// ResolvePath resets dir to "/" itself whenever remaining starts with a
	// slash, so a plain cwd/target pair handles both relative and absolute
	// targets.
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	dir, remaining := cwd, target

	step := color.New(color.FgGreen)
	final := color.New(color.FgGreen, color.Bold)

	n, err := pathwatch.ResolvePath(dir, remaining, 0, func(d, rem string, linkCount int) error {
		if rem == "" {
			final.Printf("%s  (resolved, %d symlink(s) followed)\n", d, linkCount)
			return nil
		}
		step.Printf("%s -- %s\n", d, rem)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not resolve %q: %v\n", target, err)
		os.Exit(1)
	}
	fmt.Printf("total symlinks followed: %d\n", n)
	return nil
}
