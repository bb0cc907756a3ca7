package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

var rootCmd = &cobra.Command{
	Use:   "restpf",
	Short: "Schema driven REST resource pipelines",
	Long: `restpf validates requests against resource schemas, runs the callbacks
registered on schema nodes and renders the result.

  restpf validate article.yaml   # check resource definitions
  restpf render article.yaml     # render a document from JSON data
  restpf schema article.yaml     # print the JSON Schema of a request body
  restpf serve                   # serve the resources of restpf.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "restpf.yaml", "config file path")
}
