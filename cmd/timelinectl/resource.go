// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "Manage resources",
}

var (
	resourceID          string
	resourceParentID    string
	resourceName        string
	resourceCapacity    int
	resourceBufferAfter int64
)

var resourceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a resource",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().CreateResource(map[string]any{
			"id": resourceID, "parent_id": resourceParentID, "name": resourceName,
			"capacity": resourceCapacity, "buffer_after": resourceBufferAfter,
		})
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

var resourceUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a resource",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().UpdateResource(args[0], map[string]any{
			"id": args[0], "name": resourceName, "capacity": resourceCapacity, "buffer_after": resourceBufferAfter,
		})
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

var resourceDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a resource",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().DeleteResource(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		printResult(result)
	},
}

func init() {
	resourceCreateCmd.Flags().StringVar(&resourceID, "id", "", "resource ID (minted by the server when omitted)")
	resourceCreateCmd.Flags().StringVar(&resourceParentID, "parent", "", "parent resource ID")
	resourceCreateCmd.Flags().StringVar(&resourceName, "name", "", "resource name (required)")
	resourceCreateCmd.Flags().IntVar(&resourceCapacity, "capacity", 1, "concurrent occupancy capacity")
	resourceCreateCmd.Flags().Int64Var(&resourceBufferAfter, "buffer-after", 0, "buffer milliseconds required after each booking")

	resourceUpdateCmd.Flags().StringVar(&resourceName, "name", "", "new resource name")
	resourceUpdateCmd.Flags().IntVar(&resourceCapacity, "capacity", 1, "new capacity")
	resourceUpdateCmd.Flags().Int64Var(&resourceBufferAfter, "buffer-after", 0, "new buffer milliseconds")

	resourceCmd.AddCommand(resourceCreateCmd, resourceUpdateCmd, resourceDeleteCmd)
}
