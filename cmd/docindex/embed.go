package main

import "fmt"

// Run executes the embed command.
func (c *EmbedCmd) Run(deps *Dependencies) error {
	result, err := deps.Indexer.Run(deps.Ctx, c.Rebuild)
	if err != nil {
		return err
	}
	if deps.Metrics != nil {
		deps.Metrics.ObserveIndex(result)
	}

	fmt.Fprintf(deps.Stdout, "Indexed %d documents: %d added, %d removed, %d purged, %d vectors\n",
		result.Documents, result.Added, result.Removed, result.Purged, result.Total)
	if result.Inconsistent > 0 {
		fmt.Fprintf(deps.Stdout, "Skipped %d documents missing from the manifest\n", result.Inconsistent)
	}
	if !result.Committed {
		fmt.Fprintln(deps.Stdout, "No changes; index left as is.")
	}
	return nil
}
