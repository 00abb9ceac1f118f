// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	availabilityResourceIDs []string
	availabilityStart       int64
	availabilityEnd         int64
	availabilityMinDuration int64
	availabilityMinAvail    int
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Find open spans across one or more resources",
	Run: func(cmd *cobra.Command, args []string) {
		q := url.Values{}
		if len(availabilityResourceIDs) > 0 {
			q.Set("resource_id", strings.Join(availabilityResourceIDs, ","))
		}
		q.Set("start", strconv.FormatInt(availabilityStart, 10))
		q.Set("end", strconv.FormatInt(availabilityEnd, 10))
		if availabilityMinDuration > 0 {
			q.Set("min_duration", strconv.FormatInt(availabilityMinDuration, 10))
		}
		if availabilityMinAvail > 0 {
			q.Set("min_available", strconv.Itoa(availabilityMinAvail))
		}

		result, err := client().Availability(q.Encode())
		if err != nil {
			fatalf("%v", err)
		}
		if outputFmt == "json" {
			printJSON(result)
			return
		}
		gaps, _ := result["gaps"].([]any)
		if len(gaps) == 0 {
			fmt.Println("no open spans")
			return
		}
		for _, raw := range gaps {
			span, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			fmt.Printf("%v -> %v\n", span["start"], span["end"])
		}
	},
}

func init() {
	availabilityCmd.Flags().StringSliceVar(&availabilityResourceIDs, "resource", nil, "resource ID to query (repeatable)")
	availabilityCmd.Flags().Int64Var(&availabilityStart, "start", 0, "window start, epoch milliseconds (required)")
	availabilityCmd.Flags().Int64Var(&availabilityEnd, "end", 0, "window end, epoch milliseconds (required)")
	availabilityCmd.Flags().Int64Var(&availabilityMinDuration, "min-duration", 0, "minimum contiguous open span, milliseconds")
	availabilityCmd.Flags().IntVar(&availabilityMinAvail, "min-available", 0, "minimum number of the queried resources free at the same instant")
}
