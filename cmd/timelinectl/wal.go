// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/availdb/timelinedb/internal/core/wal"
)

var walDataDir string

var walCmd = &cobra.Command{
	Use:   "wal",
	Short: "Inspect a tenant's write-ahead log offline",
	Long:  `Opens a tenant's WAL file directly, without a running timelined process, and prints every well-formed record it recovers.`,
}

var walDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Replay and print every record in the log",
	Run: func(cmd *cobra.Command, args []string) {
		path := filepath.Join(walDataDir, tenantID, "wal.log")
		handle, records, err := wal.Open(path)
		if err != nil {
			fatalf("opening WAL at %s: %v", path, err)
		}
		defer handle.Close()

		if len(records) == 0 {
			fmt.Println("no records")
			return
		}
		for _, rec := range records {
			committedAt := time.UnixMilli(rec.CommittedAtMillis).Format(time.RFC3339)
			if outputFmt == "json" {
				printJSON(map[string]any{
					"seq": rec.Seq, "committed_at": committedAt, "payload": json.RawMessage(rec.Payload),
				})
				continue
			}
			fmt.Printf("seq=%d committed_at=%s payload=%s\n", rec.Seq, committedAt, string(rec.Payload))
		}
	},
}

func init() {
	walCmd.PersistentFlags().StringVar(&walDataDir, "data-dir", "", "root data directory the tenant's WAL lives under (required)")
	walCmd.AddCommand(walDumpCmd)
}
