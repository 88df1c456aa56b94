package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

type formatter func(any) error

// tabular is implemented by command results that have a table representation
type tabular interface {
	Header() table.Row
	Rows() []table.Row
}

func yamlFormatter(resource any) error {
	data, err := yaml.Marshal(resource)
	if err != nil {
		return err
	}
	fmt.Print(string(data))

	return nil
}

func jsonFormatter(resource any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "\t")

	err := encoder.Encode(resource)
	if err != nil {
		return err
	}

	return nil
}

// tableFormatter renders tabular results as a table, anything else as a key-value table of its JSON form
func tableFormatter(resource any) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	switch value := resource.(type) {
	case tabular:
		t.AppendHeader(value.Header())
		t.AppendRows(value.Rows())
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}

		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			// Not an object, nothing to tabulate
			return yamlFormatter(resource)
		}

		t.AppendHeader(table.Row{"Property", "Value"})
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			t.AppendRow(table.Row{key, compact(fields[key])})
		}
	}

	t.Render()
	return nil
}

func compact(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}

func getFormatter(formatName outputFormat) (formatter, error) {
	switch formatName {
	case "yaml", "yml":
		return yamlFormatter, nil
	case "json":
		return jsonFormatter, nil
	case "table":
		return tableFormatter, nil
	}

	return nil, fmt.Errorf("unexpected output format %q", formatName)
}
