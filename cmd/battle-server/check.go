package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/pokeleague/internal/api"
	"github.com/park285/pokeleague/internal/wsclient"
	"github.com/park285/pokeleague/pkg/battledto"
)

var (
	checkHTTP   string
	checkWS     string
	checkWindow time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe a running battle server over HTTP and websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		client := api.NewClient(checkHTTP, api.WithTimeout(8*time.Second))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			return fmt.Errorf("/healthz: %w", err)
		}
		fmt.Fprintln(out, "/healthz ok")

		if checkWS == "" {
			fmt.Fprintln(out, "no websocket URL; skipping ws check")
			return nil
		}
		ws := wsclient.New(checkWS, 0)
		ws.OnStateChange(func(s wsclient.State) { fmt.Fprintf(out, "ws state: %s\n", s) })
		ws.OnMessage(func(ev *battledto.Event) { fmt.Fprintf(out, "ws event %s %s\n", ev.Type, string(ev.Payload)) })

		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		if err := ws.Connect(cctx); err != nil {
			return fmt.Errorf("ws connect: %w", err)
		}
		if err := ws.Send(cctx, battledto.ClientMessage{Type: "ping"}); err != nil {
			return fmt.Errorf("ws send: %w", err)
		}

		// observe for a short window
		time.Sleep(checkWindow)
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer closeCancel()
		return ws.Close(closeCtx)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkHTTP, "http", "http://localhost:8080", "battle HTTP API base URL")
	checkCmd.Flags().StringVar(&checkWS, "ws", "ws://localhost:8081/ws", "battle websocket URL")
	checkCmd.Flags().DurationVar(&checkWindow, "window", 2*time.Second, "how long to observe websocket events")
}
