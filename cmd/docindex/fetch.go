package main

import (
	"fmt"
	"os"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/crawl"
)

// Run executes the fetch command.
func (c *FetchCmd) Run(deps *Dependencies) error {
	path := c.Seeds
	if path == "" && deps.Config != nil {
		path = deps.Config.Seeds
	}
	seeds, err := readSeeds(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Fetching %d seeds...\n", len(seeds))
	result, err := deps.Crawler.Crawl(deps.Ctx, seeds, crawlProgress(deps))
	if result != nil {
		fmt.Fprintf(deps.Stdout, "Fetched %d URLs: %s\n", result.Total(), crawl.FormatSummary(result))
	}
	return err
}

func readSeeds(path string) ([]*docindex.Seed, error) {
	if path == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "no seed file given; use --seeds")
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "seed file %s not found", path)
	} else if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return docindex.ParseSeeds(f)
}

// crawlProgress prints one line per finished URL and feeds the crawl
// metrics.
func crawlProgress(deps *Dependencies) crawl.ProgressFunc {
	return func(event crawl.ProgressEvent) {
		if deps.Metrics != nil {
			deps.Metrics.CrawlProgress(event)
		}
		switch event.Type {
		case crawl.ProgressCompleted:
			fmt.Fprintf(deps.Stdout, "[%d/%d] %-9s %s\n",
				event.Completed, event.Total, event.State, crawl.TruncateURL(event.URL, 70))
		case crawl.ProgressFailed:
			fmt.Fprintf(deps.Stdout, "[%d/%d] %-9s %s: %s\n",
				event.Completed, event.Total, event.State, crawl.TruncateURL(event.URL, 70), docindex.ErrorMessage(event.Error))
		}
	}
}
