package indexer

import (
	"context"

	"github.com/fwojciec/docindex"
)

// Audit compares the committed snapshot with the chunk corpus without
// modifying either. The report matches when the vector count, the id map,
// the doc map and the number of chunk records all agree.
func Audit(ctx context.Context, store docindex.IndexStore, corpus docindex.CorpusService) (*docindex.AuditReport, error) {
	state, err := store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	records, err := corpus.CountChunks(ctx)
	if err != nil {
		return nil, err
	}

	report := &docindex.AuditReport{
		VectorCount:      state.Index.Len(),
		ChunkRecordCount: records,
		IDMapCount:       len(state.IDs),
		DocMapCount:      state.ChunkCount(),
	}
	report.Match = report.VectorCount == report.ChunkRecordCount &&
		report.VectorCount == report.IDMapCount &&
		report.VectorCount == report.DocMapCount
	return report, nil
}
