package main

import "fmt"

// Run executes the parse command.
func (c *ParseCmd) Run(deps *Dependencies) error {
	result, err := deps.Parser.Parse(deps.Ctx)
	if result != nil {
		if deps.Metrics != nil {
			deps.Metrics.ObserveParse(result)
		}
		fmt.Fprintf(deps.Stdout, "Parsed %d documents into %d chunks (%d failed, %d deleted)\n",
			result.Parsed, result.Chunks, result.Failed, result.Deleted)
	}
	return err
}
