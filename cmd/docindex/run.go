package main

// Run executes fetch, parse and embed in order, stopping at the first
// error.
func (c *RunCmd) Run(deps *Dependencies) error {
	if err := c.FetchCmd.Run(deps); err != nil {
		return err
	}
	if err := (&ParseCmd{}).Run(deps); err != nil {
		return err
	}
	return (&EmbedCmd{Rebuild: c.Rebuild}).Run(deps)
}
