package main

import (
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/internal/logging"
	"github.com/guxiaodai/restpf/internal/telemetry"
	"github.com/guxiaodai/restpf/pipeline"
	"github.com/guxiaodai/restpf/resource"
)

var (
	renderData    string
	renderVerbose bool
	renderTrace   bool
)

var renderCmd = &cobra.Command{
	Use:   "render RESOURCE.yaml",
	Short: "Render the GET document of a resource from JSON data",
	Long: `Render runs the GET pipeline of a resource definition against one
record and prints the resulting document.

The record is read from --data, or from stdin when --data is "-":

  {"id": 42, "attributes": {...}, "relationships": {...}}

Examples:
  restpf render article.yaml --data article-42.json
  echo '{"id":1,"attributes":{"title":"x"}}' | restpf render article.yaml
  restpf render article.yaml --data article-42.json --trace`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderData, "data", "d", "-", `record file, "-" for stdin`)
	renderCmd.Flags().BoolVarP(&renderVerbose, "verbose", "v", false, "log pipeline phases to stderr")
	renderCmd.Flags().BoolVar(&renderTrace, "trace", false, "print pipeline spans to stderr")
}

func runRender(cmd *cobra.Command, args []string) error {
	res, err := resource.LoadYAML(args[0])
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if renderData != "-" {
		f, err := os.Open(renderData)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}
		defer f.Close()
		in = f
	}
	var rec record
	if err := decodeJSON(in, &rec); err != nil {
		return fmt.Errorf("parse data: %w", err)
	}
	if err := serveRecords(res, map[string]record{idKey(rec.ID): rec}); err != nil {
		return err
	}

	if renderTrace {
		shutdown, err := telemetry.Init(telemetry.Config{
			Exporter: telemetry.ExporterStdout,
			Pretty:   true,
			Writer:   cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	level := "warn"
	if renderVerbose {
		level = "debug"
	}
	log := logging.New(level, "console", cmd.ErrOrStderr())
	p, err := pipeline.ForMethod(restpf.GET, pipeline.WithLogger(log))
	if err != nil {
		return err
	}
	out, err := p.Run(cmd.Context(), res, pipeline.Raw{ResourceID: rec.ID})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out.Document)
}
