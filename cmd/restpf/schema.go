package main

import (
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/jsonschema"
	"github.com/guxiaodai/restpf/resource"
)

var schemaMethod string

var schemaCmd = &cobra.Command{
	Use:   "schema RESOURCE.yaml",
	Short: "Print the JSON Schema of a request body",
	Long: `Schema prints the JSON Schema of the request body a method accepts
for a resource definition.

Examples:
  restpf schema article.yaml
  restpf schema article.yaml --method PATCH`,
	Args: cobra.ExactArgs(1),
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(&schemaMethod, "method", "m", "POST", "request method")
}

func runSchema(cmd *cobra.Command, args []string) error {
	m, err := restpf.ParseMethod(schemaMethod)
	if err != nil {
		return err
	}
	res, err := resource.LoadYAML(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(jsonschema.ForResource(res, m))
}
