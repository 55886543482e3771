package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/indexer"
)

// Run executes the audit command. A mismatch is reported and returned as
// an error so the process exits non-zero.
func (c *AuditCmd) Run(deps *Dependencies) error {
	report, err := indexer.Audit(deps.Ctx, deps.Index, deps.Corpus)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(deps.Stdout, "vectors:       %d\n", report.VectorCount)
		fmt.Fprintf(deps.Stdout, "chunk records: %d\n", report.ChunkRecordCount)
		fmt.Fprintf(deps.Stdout, "id map:        %d\n", report.IDMapCount)
		fmt.Fprintf(deps.Stdout, "doc map:       %d\n", report.DocMapCount)
		if report.Match {
			fmt.Fprintln(deps.Stdout, "OK")
		} else {
			fmt.Fprintln(deps.Stdout, "MISMATCH")
		}
	}

	if !report.Match {
		return docindex.Errorf(docindex.ECONFLICT, "index out of sync with the chunk corpus; run 'docindex embed --rebuild'")
	}
	return nil
}
