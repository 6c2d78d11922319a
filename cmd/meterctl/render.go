package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/milad/smartmeter/internal/domain"
)

// render writes v as JSON or YAML, or the rows from table as an aligned table.
func render(w io.Writer, format string, v any, table func() [][]string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		return writeYAML(w, v)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, row := range table() {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

// writeYAML emits v with its JSON field names and order. JSON is valid YAML,
// so the JSON encoding is parsed as a node tree and re-emitted in block style.
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		n.Style = 0
	case yaml.ScalarNode:
		if n.Tag == "!!str" {
			n.Style = 0
		}
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func watts(v float64) string {
	return humanize.CommafWithDigits(v, 1) + " W"
}

func kwh(v float64) string {
	return humanize.CommafWithDigits(v, 2) + " kWh"
}

func money(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func seriesRows(u domain.PowerUsage) [][]string {
	rows := [][]string{{"TIMESTAMP", "POWER", "AC", "FAN", "HEATER"}}
	for _, p := range u.Historical {
		rows = append(rows, []string{
			p.Timestamp.Format("2006-01-02 15:04"),
			watts(p.Power), watts(p.ACPower), watts(p.FanPower), watts(p.HeaterPower),
		})
	}
	return rows
}

func billingRows(b domain.BillingRecord) [][]string {
	last := "-"
	if b.LastPaymentAmount != nil {
		last = money(*b.LastPaymentAmount)
	}
	return [][]string{
		{"CUSTOMER", "DUE", "DUE DATE", "LAST PAYMENT", "LAST PAYMENT DATE"},
		{string(b.CustomerID), money(b.DueAmount), orDash(b.DueDate), last, orDash(b.LastPaymentDate)},
	}
}

func suggestionRows(recs []domain.Recommendation) [][]string {
	rows := [][]string{{"CATEGORY", "DEVICE", "ISSUE", "SAVINGS"}}
	for _, r := range recs {
		rows = append(rows, []string{r.Category, r.Device, r.Issue, r.PotentialSavings})
	}
	return rows
}

func overlayRows(pts []domain.Overlay) [][]string {
	rows := [][]string{{"PERIOD", "KWH", "LIVE", "CUMULATIVE", "REVEALED", "COST"}}
	for _, p := range pts {
		revealed := "-"
		if p.KWhLiveProgress != nil {
			revealed = kwh(*p.KWhLiveProgress)
		}
		rows = append(rows, []string{p.Period, kwh(p.KWh), kwh(p.KWhLive), kwh(p.KWhCum), revealed, money(p.Cost)})
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
