// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/spf13/cobra"

var holdCmd = &cobra.Command{
	Use:   "hold",
	Short: "Manage holds",
}

var (
	holdID         string
	holdResourceID string
	holdStart      int64
	holdEnd        int64
	holdExpiresAt  int64
)

var holdPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a hold",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().PlaceHold(map[string]any{
			"id": holdID, "resource_id": holdResourceID,
			"start": holdStart, "end": holdEnd, "expires_at": holdExpiresAt,
		})
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

var holdReleaseCmd = &cobra.Command{
	Use:   "release ID",
	Short: "Release a hold",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().ReleaseHold(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

func init() {
	holdPlaceCmd.Flags().StringVar(&holdID, "id", "", "hold ID (minted by the server when omitted)")
	holdPlaceCmd.Flags().StringVar(&holdResourceID, "resource", "", "target resource ID (required)")
	holdPlaceCmd.Flags().Int64Var(&holdStart, "start", 0, "span start, epoch milliseconds")
	holdPlaceCmd.Flags().Int64Var(&holdEnd, "end", 0, "span end, epoch milliseconds")
	holdPlaceCmd.Flags().Int64Var(&holdExpiresAt, "expires-at", 0, "expiry, epoch milliseconds (required)")

	holdCmd.AddCommand(holdPlaceCmd, holdReleaseCmd)
}
