package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RowanDark/hexcrack/internal/updater"
)

func (c *cli) runSelfUpdate(args []string) int {
	fs := flag.NewFlagSet("self-update", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	channelFlag := fs.String("channel", "", "update channel for this run (stable or beta)")
	persist := fs.Bool("persist", false, "remember --channel for later updates")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(c.stderr, "self-update takes no positional arguments")
		return 2
	}

	client, st, code := c.updaterClient()
	if client == nil {
		return code
	}

	// A channel stored by an earlier --persist beats the configured one.
	channel := c.cfg.Updater.Channel
	if _, err := os.Stat(client.Store.Path()); err == nil {
		channel = st.Channel
	}
	if *channelFlag != "" {
		channel = *channelFlag
	}
	normalized, err := updater.NormalizeChannel(channel)
	if err != nil {
		fmt.Fprintf(c.stderr, "invalid channel %q: %v\n", channel, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := client.Update(ctx, updater.UpdateOptions{Channel: normalized, PersistChannel: *persist}); err != nil {
		fmt.Fprintf(c.stderr, "update failed: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runRollback(args []string) int {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	stable := fs.Bool("stable", true, "switch the stored channel back to stable")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(c.stderr, "rollback takes no positional arguments")
		return 2
	}
	client, _, code := c.updaterClient()
	if client == nil {
		return code
	}
	if err := client.Rollback(context.Background(), updater.RollbackOptions{ForceStable: *stable}); err != nil {
		fmt.Fprintf(c.stderr, "rollback failed: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) updaterClient() (*updater.Client, updater.State, int) {
	store, err := updater.NewStore(c.cfg.Updater.Dir)
	if err != nil {
		fmt.Fprintf(c.stderr, "prepare updater state: %v\n", err)
		return nil, updater.State{}, 1
	}
	st, err := store.Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "load updater state: %v\n", err)
		return nil, updater.State{}, 1
	}
	return &updater.Client{
		Store:          store,
		BaseURL:        c.cfg.Updater.BaseURL,
		CurrentVersion: version,
		Out:            c.stdout,
		Logger:         c.logger.WithComponent("updater"),
	}, st, 0
}
