// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/spf13/cobra"

var bookingCmd = &cobra.Command{
	Use:   "booking",
	Short: "Manage bookings",
}

var (
	bookingID         string
	bookingResourceID string
	bookingStart      int64
	bookingEnd        int64
	bookingLabel      string
)

var bookingCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a single booking",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().CreateBookings(map[string]any{
			"bookings": []map[string]any{{
				"id": bookingID, "resource_id": bookingResourceID,
				"start": bookingStart, "end": bookingEnd, "label": bookingLabel,
			}},
		})
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

var bookingDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a booking",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().DeleteBooking(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

func init() {
	bookingCreateCmd.Flags().StringVar(&bookingID, "id", "", "booking ID (minted by the server when omitted)")
	bookingCreateCmd.Flags().StringVar(&bookingResourceID, "resource", "", "target resource ID (required)")
	bookingCreateCmd.Flags().Int64Var(&bookingStart, "start", 0, "span start, epoch milliseconds")
	bookingCreateCmd.Flags().Int64Var(&bookingEnd, "end", 0, "span end, epoch milliseconds")
	bookingCreateCmd.Flags().StringVar(&bookingLabel, "label", "", "free-form label")

	bookingCmd.AddCommand(bookingCreateCmd, bookingDeleteCmd)
}
