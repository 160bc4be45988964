package export

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dendrite-ai/dendrite/pkg/errors"
	"github.com/dendrite-ai/dendrite/pkg/graph"
)

// FormatVersion identifies the chunk framing; bump on incompatible changes.
const FormatVersion = "1.0"

// ChunkType tags each line of an export stream.
type ChunkType string

const (
	ChunkHeader        ChunkType = "header"
	ChunkThoughts      ChunkType = "thoughts"
	ChunkBranches      ChunkType = "branches"
	ChunkRelationships ChunkType = "relationships"
	ChunkEvents        ChunkType = "events"
)

// Header opens every export stream.
type Header struct {
	Version        string    `json:"version"`
	ThoughtCount   int       `json:"thoughtCount"`
	BranchCount    int       `json:"branchCount"`
	ExportDate     time.Time `json:"exportDate"`
	LastEventIndex int       `json:"lastEventIndex"`
}

// RelationshipType distinguishes tree edges from cross-references.
type RelationshipType string

const (
	RelationParentChild RelationshipType = "parent_child"
	RelationCrossRef    RelationshipType = "cross_ref"
)

// Relationship is one edge record of the relationships chunk.
type Relationship struct {
	Type     RelationshipType `json:"type"`
	From     string           `json:"from"`
	To       string           `json:"to"`
	CrossRef *graph.CrossRef  `json:"crossRef,omitempty"`
}

/*
Chunk is one line of the JSONL framing: a header first, then thoughts,
branches, relationships and events, each batched to a bounded size so a
consumer can process the stream incrementally.
*/
type Chunk struct {
	Type          ChunkType       `json:"type"`
	Header        *Header         `json:"header,omitempty"`
	Thoughts      []graph.Thought `json:"thoughts,omitempty"`
	Branches      []*graph.Branch `json:"branches,omitempty"`
	Relationships []Relationship  `json:"relationships,omitempty"`
	Events        []graph.Event   `json:"events,omitempty"`
}

// Exporter walks the store in fixed-size batches and writes chunks.
type Exporter struct {
	store     *graph.Store
	batchSize int
}

func NewExporter(store *graph.Store, batchSize int) *Exporter {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Exporter{store: store, batchSize: batchSize}
}

// WriteTo emits the full export stream, one JSON chunk per line.
func (e *Exporter) WriteTo(w io.Writer) error {
	enc := json.NewEncoder(w)

	header := Chunk{
		Type: ChunkHeader,
		Header: &Header{
			Version:        FormatVersion,
			ThoughtCount:   e.store.ThoughtCount(),
			BranchCount:    e.store.BranchCount(),
			ExportDate:     time.Now().UTC(),
			LastEventIndex: e.store.LastEventIndex(),
		},
	}
	if err := enc.Encode(header); err != nil {
		return err
	}

	thoughts := e.store.ThoughtBatches(e.batchSize)
	for batch, ok := thoughts.Next(); ok; batch, ok = thoughts.Next() {
		if err := enc.Encode(Chunk{Type: ChunkThoughts, Thoughts: batch}); err != nil {
			return err
		}
	}

	branches := e.store.BranchBatches(e.batchSize)
	for batch, ok := branches.Next(); ok; batch, ok = branches.Next() {
		if err := enc.Encode(Chunk{Type: ChunkBranches, Branches: batch}); err != nil {
			return err
		}
	}

	relationships := e.collectRelationships()
	for start := 0; start < len(relationships); start += e.batchSize {
		end := start + e.batchSize
		if end > len(relationships) {
			end = len(relationships)
		}
		if err := enc.Encode(Chunk{Type: ChunkRelationships, Relationships: relationships[start:end]}); err != nil {
			return err
		}
	}

	events := e.store.EventBatches(e.batchSize)
	for batch, ok := events.Next(); ok; batch, ok = events.Next() {
		if err := enc.Encode(Chunk{Type: ChunkEvents, Events: batch}); err != nil {
			return err
		}
	}

	log.Debug("export stream written",
		"thoughts", header.Header.ThoughtCount,
		"branches", header.Header.BranchCount,
		"lastEventIndex", header.Header.LastEventIndex)
	return nil
}

func (e *Exporter) collectRelationships() []Relationship {
	var out []Relationship
	for _, b := range e.store.GetAllBranches() {
		if b.ParentID != "" {
			out = append(out, Relationship{
				Type: RelationParentChild,
				From: b.ParentID,
				To:   b.ID,
			})
		}
		for i := range b.CrossRefs {
			ref := b.CrossRefs[i]
			out = append(out, Relationship{
				Type:     RelationCrossRef,
				From:     b.ID,
				To:       ref.ToBranch,
				CrossRef: &ref,
			})
		}
	}
	return out
}

// Importer reconstructs a store id-for-id from an export stream.
type Importer struct {
	store *graph.Store
}

func NewImporter(store *graph.Store) *Importer {
	return &Importer{store: store}
}

/*
ReadFrom clears the store and replays the stream. The round-trip law holds:
exporting right after an import produces the same thoughts, branches,
relationships and events. Parent/child edges arrive both inside the branch
records and in the relationships chunk; the branch records are authoritative
and the relationship entries are verified against them.
*/
func (i *Importer) ReadFrom(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	sawHeader := false
	i.store.Clear()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk Chunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return errors.Newf(errors.KindValidation, "malformed export chunk: %v", err)
		}

		switch chunk.Type {
		case ChunkHeader:
			if chunk.Header == nil {
				return errors.New(errors.KindValidation, "header chunk missing header body")
			}
			if chunk.Header.Version != FormatVersion {
				return errors.Newf(errors.KindValidation, "unsupported export version: %s", chunk.Header.Version)
			}
			sawHeader = true

		case ChunkThoughts:
			if !sawHeader {
				return errors.New(errors.KindValidation, "export stream must start with a header chunk")
			}
			for _, t := range chunk.Thoughts {
				i.store.InsertThought(t)
			}

		case ChunkBranches:
			for idx := range chunk.Branches {
				i.store.InsertBranch(chunk.Branches[idx])
			}

		case ChunkRelationships:
			for _, rel := range chunk.Relationships {
				if rel.Type != RelationParentChild {
					continue
				}
				child, ok := i.store.GetBranch(rel.To)
				if !ok || child.ParentID != rel.From {
					return errors.Newf(errors.KindValidation,
						"relationship %s -> %s does not match imported branch records", rel.From, rel.To)
				}
			}

		case ChunkEvents:
			for _, event := range chunk.Events {
				if err := i.store.AppendEvent(event); err != nil {
					return err
				}
			}

		default:
			return errors.Newf(errors.KindValidation, "unknown chunk type: %s", chunk.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Normalize(err)
	}
	if !sawHeader {
		return errors.New(errors.KindValidation, "export stream contained no header chunk")
	}

	log.Info("import finished",
		"thoughts", i.store.ThoughtCount(),
		"branches", i.store.BranchCount(),
		"events", i.store.EventCount())
	return nil
}
