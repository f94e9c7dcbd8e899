package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/irlrobot/garlc/pkg/dispatch"
	"github.com/irlrobot/garlc/pkg/ledger"
	"github.com/irlrobot/garlc/pkg/metrics"
)

type printer struct {
	w        io.Writer
	useColor bool
}

func newPrinter(w io.Writer, useColor bool) *printer {
	return &printer{w: w, useColor: useColor}
}

func (p *printer) table(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(p.w)
	table.SetBorder(true)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(headers)

	if p.useColor {
		colors := make([]tablewriter.Colors, len(headers))
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor}
		}
		table.SetHeaderColor(colors...)
	}
	return table
}

func (p *printer) summary(format string, a ...interface{}) {
	if p.useColor {
		color.New(color.FgCyan, color.Bold).Fprintf(p.w, format, a...)
		return
	}
	fmt.Fprintf(p.w, format, a...)
}

func (p *printer) instances(ids []string) {
	p.summary("Found %d instance(s)\n", len(ids))
	for _, id := range ids {
		fmt.Fprintln(p.w, id)
	}
}

func (p *printer) chunks(chunks [][]string) {
	table := p.table([]string{"Chunk", "Instances", "First", "Last"})
	total := 0
	for i, c := range chunks {
		total += len(c)
		table.Append([]string{strconv.Itoa(i + 1), strconv.Itoa(len(c)), c[0], c[len(c)-1]})
	}
	p.summary("%d instance(s) in %d chunk(s)\n", total, len(chunks))
	table.Render()
}

func (p *printer) commands(cmds []string) {
	for _, c := range cmds {
		fmt.Fprintln(p.w, c)
	}
}

func (p *printer) record(r *ledger.Record) {
	table := p.table([]string{"Field", "Value"})
	rows := [][]string{
		{"Job", r.JobID},
		{"Status", p.status(r.Status)},
		{"Step", strconv.Itoa(r.Step)},
		{"Chunks", strconv.Itoa(r.TotalChunks)},
		{"Remaining", strconv.Itoa(r.Remaining)},
		{"Delivered", strconv.Itoa(r.Delivered)},
		{"Failed", strconv.Itoa(r.Failed)},
		{"Updated", r.UpdatedAt},
	}
	if r.PipelineJobID != "" {
		rows = append(rows, []string{"Pipeline job", r.PipelineJobID})
	}
	if r.InstanceID != "" {
		rows = append(rows, []string{"Instance", r.InstanceID})
	}
	table.AppendBulk(rows)
	table.Render()
}

func (p *printer) status(s string) string {
	if !p.useColor {
		return s
	}
	switch s {
	case dispatch.StatusCompleted:
		return color.New(color.FgGreen).Sprint(s)
	case dispatch.StatusFailed, dispatch.StatusAborted:
		return color.New(color.FgRed).Sprint(s)
	default:
		return color.New(color.FgYellow).Sprint(s)
	}
}

func (p *printer) metrics(samples []metrics.Sample) {
	table := p.table([]string{"Metric", "Labels", "Value"})
	for _, s := range samples {
		table.Append([]string{s.Name, formatLabels(s.Labels), strconv.FormatFloat(s.Value, 'f', -1, 64)})
	}
	table.Render()
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}
