package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/config"
	"github.com/guxiaodai/restpf/resource"
)

var validateCmd = &cobra.Command{
	Use:   "validate [RESOURCE.yaml...]",
	Short: "Check configuration and resource definitions",
	Long: `Validate loads resource definition files and reports schema errors.

Without arguments the resources listed in the config file are checked.

Examples:
  restpf validate article.yaml user.yaml
  restpf validate --config /etc/restpf/restpf.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	files := args
	if len(files) == 0 {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(out, "  %s Config %s\n", crossMark, cfgFile)
			return err
		}
		fmt.Fprintf(out, "  %s Config %s\n", checkMark, cfgFile)
		for _, r := range cfg.Resources {
			files = append(files, r.Schema)
		}
	}
	if len(files) == 0 {
		return errors.New("no resource definitions to validate")
	}

	failed := 0
	for _, path := range files {
		res, err := resource.LoadYAML(path)
		if err == nil {
			err = res.Check()
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "  %s %s\n      %v\n", crossMark, path, err)
			continue
		}
		fmt.Fprintf(out, "  %s %s: resource %q, id %s, %s\n", checkMark, path, res.Name, res.ID.Tag(), describe(res))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d resource definitions invalid", failed, len(files))
	}
	return nil
}

func describe(res *resource.Resource) string {
	var parts []string
	for _, reg := range []string{resource.Attributes, resource.Relationships} {
		coll, _ := res.Collection(reg)
		n := 0
		coll.Root().Walk(func(*restpf.Node) bool { n++; return true })
		parts = append(parts, fmt.Sprintf("%d %s nodes", n-1, reg))
	}
	return strings.Join(parts, ", ")
}
