// Package docint provides a multi-format document extraction engine.
// It selects an extractor for a document's MIME type, runs it, and passes
// the result through staged post-processors, quality scoring, chunking and
// validators before handing it back to the caller.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, excelize/).
package docint
