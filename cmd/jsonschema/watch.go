package main

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var reportMultipleErrors bool

	cmd := &cobra.Command{
		Use:   "watch <schema-file> <instance-file>",
		Short: "Revalidate whenever the schema or instance file changes on disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], args[1], reportMultipleErrors)
		},
	}
	cmd.Flags().BoolVarP(&reportMultipleErrors, "all-errors", "a", true, "report every violation instead of stopping at the first")
	return cmd
}

func runWatch(cmd *cobra.Command, schemaPath, instancePath string, reportMultipleErrors bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range []string{schemaPath, instancePath} {
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
	}

	runOnce := func() {
		if err := runValidate(schemaPath, instancePath, reportMultipleErrors, cmd.OutOrStdout()); err != nil {
			logrus.WithError(err).Warn("validation failed")
		}
	}
	runOnce()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				runOnce()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("watch error")
		}
	}
}
