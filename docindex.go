// Package docindex maintains a searchable index over a set of seed
// documents (web pages and PDFs) that can be re-crawled repeatedly
// without re-parsing or re-embedding unchanged material.
//
// The pipeline has four stages: change-aware fetching into a manifest,
// content-addressed parsing and chunking into a chunk corpus, chunk-level
// mutation of a vector index, and querying a committed index snapshot.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, hnsw/, goquery/).
package docindex
