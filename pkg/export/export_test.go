package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dendrite-ai/dendrite/pkg/graph"
)

func seededStore(t *testing.T) *graph.Store {
	t.Helper()
	store := graph.NewStore()

	_, err := store.CreateBranch("branch-root", "")
	require.NoError(t, err)
	_, err = store.CreateBranch("branch-child", "branch-root")
	require.NoError(t, err)
	store.RecordEvent(graph.EventBranchCreated, "", "branch-root", nil)
	store.RecordEvent(graph.EventBranchCreated, "", "branch-child", nil)

	for _, c := range []string{"premise", "refinement", "counterpoint"} {
		th, _ := store.CreateThoughtIfNew(graph.ThoughtSpec{Content: c, BranchID: "branch-child"})
		store.AddThoughtToBranch(th.ID, "branch-child")
		store.RecordEvent(graph.EventThoughtAdded, th.ID, "branch-child", nil)
	}

	child, _ := store.GetBranch("branch-child")
	child.CrossRefs = append(child.CrossRefs, graph.CrossRef{
		ToBranch: "branch-root",
		Type:     graph.CrossRefBuildsUpon,
		Strength: 0.7,
	})
	store.RecordEvent(graph.EventCrossRefAdded, "", "branch-child", nil)
	return store
}

func TestExportStreamShape(t *testing.T) {
	store := seededStore(t)

	var buf bytes.Buffer
	require.NoError(t, NewExporter(store, 2).WriteTo(&buf))

	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	var chunks []Chunk
	for scanner.Scan() {
		var c Chunk
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &c))
		chunks = append(chunks, c)
	}
	require.NoError(t, scanner.Err())
	require.NotEmpty(t, chunks)

	assert.Equal(t, ChunkHeader, chunks[0].Type)
	require.NotNil(t, chunks[0].Header)
	assert.Equal(t, FormatVersion, chunks[0].Header.Version)
	assert.Equal(t, 3, chunks[0].Header.ThoughtCount)
	assert.Equal(t, 2, chunks[0].Header.BranchCount)
	assert.Equal(t, store.LastEventIndex(), chunks[0].Header.LastEventIndex)

	// Batch size 2 splits the three thoughts across two chunks.
	var thoughtChunks, relationships int
	for _, c := range chunks[1:] {
		switch c.Type {
		case ChunkThoughts:
			thoughtChunks++
			assert.LessOrEqual(t, len(c.Thoughts), 2)
		case ChunkRelationships:
			relationships += len(c.Relationships)
		}
	}
	assert.Equal(t, 2, thoughtChunks)
	assert.Equal(t, 2, relationships, "one parent edge and one cross-reference")
}

func TestRoundTripIsFixedPoint(t *testing.T) {
	store := seededStore(t)

	var first bytes.Buffer
	require.NoError(t, NewExporter(store, 100).WriteTo(&first))

	restored := graph.NewStore()
	require.NoError(t, NewImporter(restored).ReadFrom(bytes.NewReader(first.Bytes())))

	assert.Equal(t, store.ThoughtCount(), restored.ThoughtCount())
	assert.Equal(t, store.BranchCount(), restored.BranchCount())
	assert.Equal(t, store.EventCount(), restored.EventCount())

	child, ok := restored.GetBranch("branch-child")
	require.True(t, ok)
	assert.Equal(t, "branch-root", child.ParentID)
	assert.Len(t, child.Thoughts, 3, "thought cache is rebuilt on import")
	assert.Len(t, child.CrossRefs, 1)

	var second bytes.Buffer
	require.NoError(t, NewExporter(restored, 100).WriteTo(&second))

	// Only the header's export timestamp may differ.
	firstRest := strings.SplitN(first.String(), "\n", 2)[1]
	secondRest := strings.SplitN(second.String(), "\n", 2)[1]
	assert.Equal(t, firstRest, secondRest)
}

func TestImportClearsExistingState(t *testing.T) {
	store := seededStore(t)
	var buf bytes.Buffer
	require.NoError(t, NewExporter(store, 100).WriteTo(&buf))

	target := graph.NewStore()
	_, err := target.CreateBranch("branch-stale", "")
	require.NoError(t, err)

	require.NoError(t, NewImporter(target).ReadFrom(&buf))
	assert.False(t, target.HasBranch("branch-stale"))
	assert.True(t, target.HasBranch("branch-root"))
}

func TestImportRejectsMalformedStreams(t *testing.T) {
	cases := map[string]string{
		"no header": `{"type":"thoughts","thoughts":[]}`,
		"bad json":  `{"type":`,
		"unknown chunk": `{"type":"header","header":{"version":"1.0"}}
{"type":"mystery"}`,
		"wrong version": `{"type":"header","header":{"version":"0.9"}}`,
		"empty stream":  ``,
		"event gap": `{"type":"header","header":{"version":"1.0"}}
{"type":"events","events":[{"index":5,"type":"thought_added"}]}`,
	}

	for name, stream := range cases {
		err := NewImporter(graph.NewStore()).ReadFrom(strings.NewReader(stream))
		assert.Error(t, err, name)
	}
}

func TestImportVerifiesParentChildRelationships(t *testing.T) {
	stream := `{"type":"header","header":{"version":"1.0"}}
{"type":"branches","branches":[{"id":"branch-a","state":"active"}]}
{"type":"relationships","relationships":[{"type":"parent_child","from":"branch-ghost","to":"branch-a"}]}`

	err := NewImporter(graph.NewStore()).ReadFrom(strings.NewReader(stream))
	assert.Error(t, err)
}
