package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/fs"
	"github.com/fwojciec/docindex/fsnotify"
)

// Run executes the search command. Without a query argument it reads one
// query per line from stdin and picks up newly committed snapshots while
// it runs.
func (c *SearchCmd) Run(deps *Dependencies) error {
	if err := deps.Engine.Load(deps.Ctx); err != nil {
		if docindex.ErrorCode(err) == docindex.ENOTFOUND {
			fmt.Fprintln(deps.Stderr, "Hint: run 'docindex embed' to build the index")
		}
		return err
	}

	opts := c.options(deps.Config)
	if c.Query != "" {
		return c.print(deps.Stdout, deps.Searcher.Search(deps.Ctx, c.Query, opts))
	}
	return c.interactive(deps, opts)
}

func (c *SearchCmd) options(cfg *docindex.Config) docindex.SearchOptions {
	var opts docindex.SearchOptions
	if cfg != nil {
		opts = docindex.SearchOptions{
			K:        cfg.Search.K,
			MinScore: cfg.Search.MinScore,
			Hybrid:   cfg.Search.Hybrid,
		}
	}
	if c.K > 0 {
		opts.K = c.K
	}
	if c.MinScore != nil {
		opts.MinScore = *c.MinScore
	}
	if c.Hybrid {
		opts.Hybrid = true
	}
	return opts
}

func (c *SearchCmd) interactive(deps *Dependencies, opts docindex.SearchOptions) error {
	if deps.WatchDir != "" {
		w, err := fsnotify.Watch(deps.WatchDir, fs.CurrentFile, fsnotify.DefaultDebounce, func() {
			_ = deps.Engine.Reload(deps.Ctx)
		}, deps.Logger)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	scanner := bufio.NewScanner(deps.Stdin)
	fmt.Fprint(deps.Stdout, "> ")
	for scanner.Scan() {
		if deps.Ctx.Err() != nil {
			return deps.Ctx.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		switch query {
		case "":
		case "exit", "quit":
			return nil
		default:
			if err := c.print(deps.Stdout, deps.Searcher.Search(deps.Ctx, query, opts)); err != nil {
				return err
			}
		}
		fmt.Fprint(deps.Stdout, "> ")
	}
	fmt.Fprintln(deps.Stdout)
	return scanner.Err()
}

func (c *SearchCmd) print(w io.Writer, results []*docindex.SearchResult) error {
	if c.JSON {
		return json.NewEncoder(w).Encode(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. [%.3f] %s\n", i+1, r.Score, r.Title)
		fmt.Fprintf(w, "   %s\n", r.Source)
		if r.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", r.Snippet)
		}
	}
	return nil
}
