package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// render writes v as json or yaml, or calls table for the table format.
func (a *app) render(v any, table func(t *tablewriter.Table) error) error {
	switch a.output {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		t := tablewriter.NewWriter(a.out)
		if err := table(t); err != nil {
			return err
		}
		return t.Render()
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}
}

func appendRows(t *tablewriter.Table, rows [][]string) error {
	for _, r := range rows {
		if err := t.Append(r); err != nil {
			return err
		}
	}
	return nil
}
