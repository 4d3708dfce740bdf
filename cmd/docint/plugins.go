package main

import (
	"strconv"
	"strings"

	"github.com/fwojciec/docint"
	"github.com/olekukonko/tablewriter"
)

// Run executes the plugins command.
func (c *PluginsCmd) Run(deps *Dependencies) error {
	table := tablewriter.NewWriter(deps.Stdout)
	table.SetHeader([]string{"Family", "Name", "Priority", "Stage", "MIME Types"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, h := range deps.Plugins.Extractors.Snapshot() {
		table.Append([]string{string(h.Family), h.Name, strconv.Itoa(h.Priority), "",
			strings.Join(h.Plugin.SupportedMimeTypes(), ", ")})
	}
	for _, h := range deps.Plugins.OcrBackends.Snapshot() {
		table.Append([]string{string(h.Family), h.Name, "", "",
			"languages: " + strings.Join(h.Plugin.SupportedLanguages(), ", ")})
	}
	for _, stage := range docint.Stages {
		for _, h := range deps.Plugins.PostProcessorsForStage(stage) {
			table.Append([]string{string(h.Family), h.Name, "", stage.String(), ""})
		}
	}
	for _, h := range deps.Plugins.Validators.Snapshot() {
		table.Append([]string{string(h.Family), h.Name, "", "", ""})
	}

	table.Render()
	return nil
}
