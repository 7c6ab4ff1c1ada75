package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// printer writes command results as a table, JSON or YAML
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(format string, w io.Writer) (*printer, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return &printer{format: format, w: w}, nil
	}
	return nil, fmt.Errorf("unknown format %q (table, json, yaml)", format)
}

// result prints v for json/yaml and the headers/rows table otherwise.
// A title line, when set, precedes the table.
func (p *printer) result(v any, title string, headers []string, rows [][]string) error {
	switch p.format {
	case formatJSON:
		return p.json(v)
	case formatYAML:
		return p.yaml(v)
	}
	if title != "" {
		fmt.Fprintln(p.w, title)
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.w, "(none)")
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(p.w, t.Render())
	return err
}

// message prints msg in table mode and v otherwise
func (p *printer) message(msg string, v any) error {
	if p.format == formatTable {
		_, err := fmt.Fprintln(p.w, msg)
		return err
	}
	return p.result(v, "", nil, nil)
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// yaml goes through JSON so keys keep the API's snake_case names and order
func (p *printer) yaml(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle turns the flow-style JSON tree into block YAML. Strings lose
// their quotes unless they would read back as something else.
func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		n.Style = 0
	case yaml.ScalarNode:
		if n.Tag == "!!str" && plainString(n.Value) {
			n.Style = 0
		}
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func plainString(s string) bool {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return false
	}
	got, ok := v.(string)
	return ok && got == s
}
