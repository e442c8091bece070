package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/urfave/cli/v3"

	"comicshelf/internal/gateway"
)

// SyncListen follows the TCP sync feed, reconnecting after a short pause
// whenever the connection drops.
func (r *Runner) SyncListen(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.SyncAddr
	}
	r.logger.Info("listening to sync feed", "addr", addr)

	for {
		err := gateway.ListenSync(ctx, addr, r.printEvent)
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		r.logger.Warn("sync feed dropped, reconnecting", "err", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

// NotifySubscribe follows the WebSocket event stream until interrupted.
func (r *Runner) NotifySubscribe(ctx context.Context, cmd *cli.Command) error {
	wsURL, err := gateway.WebsocketURL(r.config.Server.BaseURL)
	if err != nil {
		return err
	}
	r.logger.Info("subscribed", "url", wsURL)

	err = gateway.ListenWS(ctx, wsURL, r.printEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// printEvent prints one feed message, indenting JSON events for readability.
func (r *Runner) printEvent(line []byte) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, line, "", "  "); err != nil {
		r.writePlain("%s\n", line)
		return
	}
	r.writePlain("%s\n", pretty.String())
}
