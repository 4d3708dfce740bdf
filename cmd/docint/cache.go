package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fwojciec/docint"
	"github.com/olekukonko/tablewriter"
)

// Run executes the cache list command.
func (c *CacheListCmd) Run(deps *Dependencies) error {
	entries, err := deps.Cache.Entries(deps.Ctx, c.Limit, c.Offset)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docint.ErrorMessage(err))
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(deps.Stdout, "Cache is empty.")
		return nil
	}

	table := tablewriter.NewWriter(deps.Stdout)
	table.SetHeader([]string{"Key", "MIME Type", "Size", "Created"})
	table.SetBorder(false)
	for _, e := range entries {
		table.Append([]string{
			shortKey(e.Key),
			e.MimeType,
			humanize.Bytes(uint64(e.Size)),
			humanize.Time(e.CreatedAt),
		})
	}
	table.Render()
	return nil
}

// Run executes the cache prune command.
func (c *CachePruneCmd) Run(deps *Dependencies) error {
	cutoff := time.Now().Add(-c.OlderThan)
	n, err := deps.Cache.Prune(deps.Ctx, cutoff)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docint.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Pruned %s cached extractions older than %s\n", strconv.FormatInt(n, 10), c.OlderThan)
	return nil
}

func shortKey(key string) string {
	if len(key) > 16 {
		return key[:16]
	}
	return key
}
