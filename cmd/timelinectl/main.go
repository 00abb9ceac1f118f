// SPDX-License-Identifier: Apache-2.0

// Command timelinectl is a CLI for issuing commands and availability
// queries against a running cmd/timelined process, or for inspecting a
// tenant's WAL directory offline. Grounded on the teacher's cmd/slurm-cli:
// one root cobra.Command with persistent connection flags, one
// subcommand tree per resource kind.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	addr     string
	tenantID string
	username string
	password string
	outputFmt string
)

var rootCmd = &cobra.Command{
	Use:   "timelinectl",
	Short: "CLI for the timelinedb allocation engine",
	Long:  `A command-line interface for issuing commands and availability queries against a running timelined process.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:5433", "timelined base URL (env: TIMELINECTL_ADDR)")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "default", "tenant ID (env: TIMELINECTL_TENANT)")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "basic auth username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "basic auth password (env: TIMELINECTL_PASSWORD)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format: table, json")

	if v := os.Getenv("TIMELINECTL_ADDR"); v != "" {
		addr = v
	}
	if v := os.Getenv("TIMELINECTL_TENANT"); v != "" {
		tenantID = v
	}
	if v := os.Getenv("TIMELINECTL_PASSWORD"); v != "" {
		password = v
	}

	rootCmd.AddCommand(resourceCmd, ruleCmd, bookingCmd, holdCmd, availabilityCmd, watchCmd, walCmd)
}

func client() *apiClient {
	return newAPIClient(addr, tenantID, username, password)
}

func printResult(result map[string]any) {
	if outputFmt == "json" {
		printJSON(result)
		return
	}
	for k, v := range result {
		fmt.Printf("%s: %v\n", titleCase(k), v)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatalf("%v", err)
	}
}
