// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/availdb/timelinedb/pkg/watch"
)

var watchResourceID string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live mutations for a resource",
	Run: func(cmd *cobra.Command, args []string) {
		if watchResourceID == "" {
			fatalf("--resource is required")
		}

		dial := func(ctx context.Context, resourceID string) (watch.Conn, error) {
			wsURL, err := toWebSocketURL(addr, tenantID, resourceID)
			if err != nil {
				return nil, err
			}
			header := http.Header{}
			if password != "" {
				req, _ := http.NewRequest(http.MethodGet, wsURL, nil)
				req.SetBasicAuth(username, password)
				header = req.Header
			}
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sub := watch.NewSubscriber(dial)
		for ev := range sub.Watch(ctx, watchResourceID) {
			fmt.Println(watch.Describe(ev))
		}
	},
}

func toWebSocketURL(base, tenant, resourceID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/tenants/%s/resources/%s/watch", tenant, resourceID)
	return u.String(), nil
}

func init() {
	watchCmd.Flags().StringVar(&watchResourceID, "resource", "", "resource ID to watch (required)")
}
