// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/spf13/cobra"

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage availability rules",
}

var (
	ruleID         string
	ruleResourceID string
	ruleStart      int64
	ruleEnd        int64
	ruleBlocking   bool
)

var ruleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a rule",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().CreateRule(map[string]any{
			"id": ruleID, "resource_id": ruleResourceID, "start": ruleStart, "end": ruleEnd, "blocking": ruleBlocking,
		})
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

var ruleUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a rule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().UpdateRule(args[0], map[string]any{
			"id": args[0], "start": ruleStart, "end": ruleEnd, "blocking": ruleBlocking,
		})
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

var ruleDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().DeleteRule(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

func init() {
	ruleCreateCmd.Flags().StringVar(&ruleID, "id", "", "rule ID (minted by the server when omitted)")
	ruleCreateCmd.Flags().StringVar(&ruleResourceID, "resource", "", "target resource ID (required)")
	ruleCreateCmd.Flags().Int64Var(&ruleStart, "start", 0, "span start, epoch milliseconds")
	ruleCreateCmd.Flags().Int64Var(&ruleEnd, "end", 0, "span end, epoch milliseconds")
	ruleCreateCmd.Flags().BoolVar(&ruleBlocking, "blocking", false, "blocking rule instead of an open-availability rule")

	ruleUpdateCmd.Flags().Int64Var(&ruleStart, "start", 0, "new span start, epoch milliseconds")
	ruleUpdateCmd.Flags().Int64Var(&ruleEnd, "end", 0, "new span end, epoch milliseconds")
	ruleUpdateCmd.Flags().BoolVar(&ruleBlocking, "blocking", false, "new blocking flag")

	ruleCmd.AddCommand(ruleCreateCmd, ruleUpdateCmd, ruleDeleteCmd)
}
