package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/steveyegge/issueboard/internal/config"
	"github.com/steveyegge/issueboard/internal/manager"
	"github.com/steveyegge/issueboard/internal/storage/filelog"
	"github.com/steveyegge/issueboard/internal/types"
)

func newWatchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [issue]",
		Short: "Redisplay the issue list whenever the board changes",
		Long: `Watch redisplays the list after every change. The local backend is watched
for file changes; remote backends are polled every --interval.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.manager()
			if err != nil {
				return err
			}
			req := manager.Request{Action: string(types.ActionList), Caller: c.callerName()}
			if len(args) == 1 {
				req.Issue = args[0]
			}
			req.OnlyInState, _ = cmd.Flags().GetStringSlice("state")

			refresh := func() {
				if err := c.printResult(cmd.OutOrStdout(), mgr.Do(c.context(), req), false, false); err != nil && !errors.Is(err, errFailed) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error refreshing issues: %v\n", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (Press Ctrl+C to exit)\n")
			}
			refresh()

			ctx := c.context()
			if mgr.Backend().Name() == filelog.BackendName {
				err = watchBoard(ctx, c.boardDir(), config.GetDuration("watch.debounce"), refresh)
			} else {
				interval, _ := cmd.Flags().GetDuration("interval")
				err = pollBoard(ctx, interval, refresh)
			}
			if err == nil || ctx.Err() != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nStopped watching.\n")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringSliceP("state", "s", nil, "only issues in these statuses (repeatable)")
	cmd.Flags().Duration("interval", 30*time.Second, "poll interval for remote backends")
	return cmd
}

// watchBoard calls refresh after changes under dir settle for debounce.
// New issue directories are watched as they appear. It returns when ctx is done.
func watchBoard(ctx context.Context, dir string, debounce time.Duration, refresh func()) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := addTree(watcher, dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addTree(watcher, event.Name)
				}
			}
			// Lock files come and go on every write.
			if filepath.Ext(event.Name) == ".lock" || event.Has(fsnotify.Chmod) {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			refresh()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// pollBoard calls refresh every interval until ctx is done.
func pollBoard(ctx context.Context, interval time.Duration, refresh func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		}
	}
}
