package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dendrite-ai/dendrite/pkg/errors"
	"github.com/dendrite-ai/dendrite/pkg/graph"
	"github.com/dendrite-ai/dendrite/pkg/semantic"
)

func newTestEngine() *Engine {
	cfg := Default()
	cfg.AutoEvaluation = false
	return New(cfg, semantic.NewMockEmbedder())
}

func TestAddThought(t *testing.T) {
	Convey("Given a fresh engine", t, func() {
		eng := newTestEngine()
		ctx := context.Background()

		Convey("When a thought is added without a branch", func() {
			result, err := eng.AddThought(ctx, AddThoughtRequest{
				Content:    "start from the failure mode",
				Confidence: 0.6,
			})
			So(err, ShouldBeNil)

			Convey("Then a branch is created and becomes active", func() {
				So(result.CreatedBranch, ShouldBeTrue)
				So(result.NewThought, ShouldBeTrue)
				So(result.BranchID, ShouldStartWith, "branch-")
				So(eng.ActiveBranch(), ShouldEqual, result.BranchID)
			})

			Convey("And the thought id is content-derived", func() {
				So(result.Thought.ID, ShouldEqual, graph.ContentHash("start from the failure mode"))
			})

			Convey("And the event log recorded creation and append", func() {
				events := eng.Store().GetEventsSince(-1)
				So(events, ShouldHaveLength, 2)
				So(events[0].Type, ShouldEqual, graph.EventBranchCreated)
				So(events[1].Type, ShouldEqual, graph.EventThoughtAdded)
			})

			Convey("And the branch profile was initialized", func() {
				b, ok := eng.Store().GetBranch(result.BranchID)
				So(ok, ShouldBeTrue)
				So(b.Profile, ShouldNotBeNil)
				So(b.Profile.ThoughtCount, ShouldEqual, 1)
			})

			Convey("When the identical content is added again", func() {
				second, err := eng.AddThought(ctx, AddThoughtRequest{
					Content:    "start from the failure mode",
					Confidence: 0.6,
				})
				So(err, ShouldBeNil)

				Convey("Then it resolves to the existing thought", func() {
					So(second.NewThought, ShouldBeFalse)
					So(second.Thought.ID, ShouldEqual, result.Thought.ID)
					So(eng.Store().ThoughtCount(), ShouldEqual, 1)
				})

				Convey("But the branch sequence still grows", func() {
					b, _ := eng.Store().GetBranch(result.BranchID)
					So(b.ThoughtIDs, ShouldHaveLength, 2)
				})
			})
		})

		Convey("Blank content is rejected", func() {
			_, err := eng.AddThought(ctx, AddThoughtRequest{Content: "   ", Confidence: 0.5})
			So(errors.IsKind(err, errors.KindValidation), ShouldBeTrue)
		})

		Convey("Out-of-range confidence is rejected", func() {
			_, err := eng.AddThought(ctx, AddThoughtRequest{Content: "x", Confidence: 1.2})
			So(errors.IsKind(err, errors.KindValidation), ShouldBeTrue)
		})
	})
}

func TestAddThoughtRoutesToActiveBranch(t *testing.T) {
	Convey("Given an engine with two branches", t, func() {
		eng := newTestEngine()
		ctx := context.Background()

		first, err := eng.CreateBranch("branch-first", "")
		So(err, ShouldBeNil)
		_, err = eng.CreateBranch("branch-second", "")
		So(err, ShouldBeNil)

		Convey("A thought without a branch id lands on the active branch", func() {
			result, err := eng.AddThought(ctx, AddThoughtRequest{Content: "goes to first", Confidence: 0.5})
			So(err, ShouldBeNil)
			So(result.BranchID, ShouldEqual, first.ID)
		})

		Convey("After focusing the second branch it lands there instead", func() {
			So(eng.Focus("branch-second"), ShouldBeNil)
			result, err := eng.AddThought(ctx, AddThoughtRequest{Content: "goes to second", Confidence: 0.5})
			So(err, ShouldBeNil)
			So(result.BranchID, ShouldEqual, "branch-second")
		})

		Convey("Focusing a missing branch fails", func() {
			So(errors.IsKind(eng.Focus("branch-ghost"), errors.KindBranchNotFound), ShouldBeTrue)
		})
	})
}

func TestAutoEvaluation(t *testing.T) {
	Convey("Given an engine with auto-evaluation on and a sparse threshold of 3", t, func() {
		cfg := Default()
		cfg.SparseThreshold = 3
		eng := New(cfg, semantic.NewMockEmbedder())
		ctx := context.Background()

		Convey("The first thought does not trigger an evaluation", func() {
			// The creation event counts toward the window, so the branch
			// holds two unscored events after one thought.
			result, err := eng.AddThought(ctx, AddThoughtRequest{
				Content: "query planning starts with statistics", Confidence: 0.5,
			})
			So(err, ShouldBeNil)
			So(result.Evaluation, ShouldBeNil)

			Convey("And the second one does", func() {
				result, err := eng.AddThought(ctx, AddThoughtRequest{
					Content: "stale statistics mislead the planner", Confidence: 0.5,
				})
				So(err, ShouldBeNil)
				So(result.Evaluation, ShouldNotBeNil)

				Convey("Which advances the evaluation cursor past the evaluation event", func() {
					b, _ := eng.Store().GetBranch(result.BranchID)
					So(b.LastEvaluationIndex, ShouldEqual, eng.Store().LastEventIndex())
				})
			})
		})
	})
}

func TestAutoEvaluationUniformAcrossBranches(t *testing.T) {
	Convey("Given two branches created at different points of the event log", t, func() {
		cfg := Default()
		cfg.SparseThreshold = 3
		eng := New(cfg, semantic.NewMockEmbedder())
		ctx := context.Background()

		addTo := func(branchID, content string) *AddThoughtResult {
			result, err := eng.AddThought(ctx, AddThoughtRequest{
				Content: content, BranchID: branchID, Confidence: 0.5,
			})
			So(err, ShouldBeNil)
			return result
		}

		Convey("The branch owning event index 0 evaluates no later than a later one", func() {
			// branch-one's creation is the log's very first event; the
			// cursor must not treat that index as already scored.
			So(addTo("branch-one", "first line of reasoning").Evaluation, ShouldBeNil)
			So(addTo("branch-one", "second line of reasoning").Evaluation, ShouldNotBeNil)

			So(addTo("branch-two", "a different angle entirely").Evaluation, ShouldBeNil)
			So(addTo("branch-two", "that angle refined further").Evaluation, ShouldNotBeNil)
		})
	})
}

func TestCreateBranchEnforcesMaxDepth(t *testing.T) {
	Convey("Given an engine with a maximum branch depth of 3", t, func() {
		cfg := Default()
		cfg.AutoEvaluation = false
		cfg.MaxBranchDepth = 3
		eng := New(cfg, semantic.NewMockEmbedder())

		Convey("Chains stop growing once the limit is reached", func() {
			parent := ""
			depth := 0
			for ; depth < 10; depth++ {
				b, err := eng.CreateBranch("", parent)
				if err != nil {
					So(errors.IsKind(err, errors.KindValidation), ShouldBeTrue)
					break
				}
				parent = b.ID
			}
			So(depth, ShouldEqual, 4) // root at depth 0 plus three descendants

			Convey("And linking past the limit is rejected too", func() {
				detached, err := eng.CreateBranch("", "")
				So(err, ShouldBeNil)
				So(errors.IsKind(
					eng.LinkBranches(parent, detached.ID),
					errors.KindValidation), ShouldBeTrue)
			})
		})
	})
}

func TestEvaluateBranchAppliesTransitions(t *testing.T) {
	Convey("Given a branch evaluated by the production pipeline", t, func() {
		eng := newTestEngine()
		ctx := context.Background()

		_, err := eng.AddThought(ctx, AddThoughtRequest{
			Content: "steady progress on the main question", Confidence: 0.5,
		})
		So(err, ShouldBeNil)
		branchID := eng.ActiveBranch()

		result, err := eng.EvaluateBranch(ctx, branchID, "answer the main question")
		So(err, ShouldBeNil)

		Convey("The branch confidence mirrors the overall score", func() {
			b, _ := eng.Store().GetBranch(branchID)
			So(b.Confidence, ShouldEqual, result.OverallScore)
		})

		Convey("An evaluation event was recorded", func() {
			events := eng.Store().GetEventsSince(-1)
			last := events[len(events)-1]
			if last.Type != graph.EventEvaluationCompleted {
				// A transition event may follow the evaluation record.
				So(last.Type, ShouldEqual, graph.EventBranchStateChanged)
			}
		})

		Convey("Evaluating a missing branch fails", func() {
			_, err := eng.EvaluateBranch(ctx, "branch-ghost", "")
			So(errors.IsKind(err, errors.KindBranchNotFound), ShouldBeTrue)
		})
	})
}

func TestCrossRefs(t *testing.T) {
	Convey("Given two branches", t, func() {
		eng := newTestEngine()

		_, err := eng.CreateBranch("branch-a", "")
		So(err, ShouldBeNil)
		_, err = eng.CreateBranch("branch-b", "")
		So(err, ShouldBeNil)

		Convey("A valid cross-reference is recorded with its event", func() {
			err := eng.AddCrossRef("branch-a", "branch-b", graph.CrossRefBuildsUpon, "b extends a's idea", 0.8)
			So(err, ShouldBeNil)

			a, _ := eng.Store().GetBranch("branch-a")
			So(a.CrossRefs, ShouldHaveLength, 1)
			So(a.CrossRefs[0].ToBranch, ShouldEqual, "branch-b")

			events := eng.Store().GetEventsSince(-1)
			So(events[len(events)-1].Type, ShouldEqual, graph.EventCrossRefAdded)
		})

		Convey("Unknown type, bad strength and missing branches are rejected", func() {
			So(errors.IsKind(
				eng.AddCrossRef("branch-a", "branch-b", "friendly", "", 0.5),
				errors.KindValidation), ShouldBeTrue)
			So(errors.IsKind(
				eng.AddCrossRef("branch-a", "branch-b", graph.CrossRefAlternative, "", 1.5),
				errors.KindValidation), ShouldBeTrue)
			So(errors.IsKind(
				eng.AddCrossRef("branch-ghost", "branch-b", graph.CrossRefAlternative, "", 0.5),
				errors.KindBranchNotFound), ShouldBeTrue)
		})

		Convey("Strongest paths rank by strength", func() {
			_, err := eng.CreateBranch("branch-c", "")
			So(err, ShouldBeNil)
			So(eng.AddCrossRef("branch-a", "branch-b", graph.CrossRefComplementary, "", 0.3), ShouldBeNil)
			So(eng.AddCrossRef("branch-a", "branch-c", graph.CrossRefBuildsUpon, "", 0.9), ShouldBeNil)

			refs, err := eng.FindStrongestPaths("branch-a", 1)
			So(err, ShouldBeNil)
			So(refs, ShouldHaveLength, 1)
			So(refs[0].ToBranch, ShouldEqual, "branch-c")
		})
	})
}

func TestHistoryTruncation(t *testing.T) {
	Convey("Given an engine with a short display truncation", t, func() {
		cfg := Default()
		cfg.AutoEvaluation = false
		cfg.ContentTruncate = 20
		eng := New(cfg, semantic.NewMockEmbedder())
		ctx := context.Background()

		long := strings.Repeat("abcdefghij", 5)
		_, err := eng.AddThought(ctx, AddThoughtRequest{Content: long, Confidence: 0.5})
		So(err, ShouldBeNil)

		Convey("History trims content and marks the cut", func() {
			history, err := eng.History("")
			So(err, ShouldBeNil)
			So(history, ShouldHaveLength, 1)
			So(history[0].Content, ShouldEqual, long[:20]+"...")
		})

		Convey("History of a missing branch fails", func() {
			_, err := eng.History("branch-ghost")
			So(errors.IsKind(err, errors.KindBranchNotFound), ShouldBeTrue)
		})
	})

	Convey("With no branch given and nothing active, history fails", t, func() {
		eng := newTestEngine()
		_, err := eng.History("")
		So(errors.IsKind(err, errors.KindValidation), ShouldBeTrue)
	})
}

func TestStats(t *testing.T) {
	Convey("Given an engine with a couple of thoughts", t, func() {
		eng := newTestEngine()
		ctx := context.Background()

		for _, c := range []string{"first observation", "second observation"} {
			_, err := eng.AddThought(ctx, AddThoughtRequest{Content: c, Confidence: 0.5})
			So(err, ShouldBeNil)
		}

		stats := eng.Stats()
		So(stats.ThoughtCount, ShouldEqual, 2)
		So(stats.BranchCount, ShouldEqual, 1)
		So(stats.EventCount, ShouldEqual, 3)
		So(stats.ActiveBranch, ShouldEqual, eng.ActiveBranch())
		So(stats.Branches, ShouldHaveLength, 1)
		So(stats.Branches[0].ThoughtCount, ShouldEqual, 2)
	})
}

func TestPruneClearsStaleActiveBranch(t *testing.T) {
	Convey("Given an active branch guaranteed to score poorly", t, func() {
		eng := newTestEngine()
		ctx := context.Background()

		// Three identical appends force maximal redundancy.
		for i := 0; i < 3; i++ {
			_, err := eng.AddThought(ctx, AddThoughtRequest{
				Content: "the same sentence repeated", Confidence: 0.5,
			})
			So(err, ShouldBeNil)
		}
		branchID := eng.ActiveBranch()

		Convey("Pruning at a high threshold removes it and clears the focus", func() {
			report, err := eng.Prune(ctx, 0.9)
			So(err, ShouldBeNil)
			So(report.Removed, ShouldContain, branchID)
			So(eng.ActiveBranch(), ShouldBeEmpty)
		})

		Convey("A negative threshold falls back to the configured default", func() {
			report, err := eng.Prune(ctx, -1)
			So(err, ShouldBeNil)
			So(report.Threshold, ShouldEqual, eng.Config().PruneDefaultThreshold)
		})
	})
}

// The tool server may dispatch handlers concurrently, so the summary readers
// must serialize against appends. Run with -race to catch regressions.
func TestConcurrentReadersAndAppends(t *testing.T) {
	eng := newTestEngine()
	ctx := context.Background()

	if _, err := eng.AddThought(ctx, AddThoughtRequest{Content: "seed thought", Confidence: 0.5}); err != nil {
		t.Fatal(err)
	}
	branchID := eng.ActiveBranch()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := eng.AddThought(ctx, AddThoughtRequest{
				Content:    fmt.Sprintf("concurrent thought %d", i),
				Confidence: 0.5,
			}); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := eng.History(branchID); err != nil {
				t.Error(err)
				return
			}
			eng.Stats()
		}
	}()
	wg.Wait()

	if got := eng.Stats().ThoughtCount; got != 51 {
		t.Fatalf("expected 51 thoughts after both goroutines finish, got %d", got)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	Convey("Given an engine with structure, thoughts and cross-references", t, func() {
		eng := newTestEngine()
		ctx := context.Background()

		_, err := eng.CreateBranch("branch-root", "")
		So(err, ShouldBeNil)
		_, err = eng.CreateBranch("branch-child", "branch-root")
		So(err, ShouldBeNil)

		for _, c := range []string{"root premise", "child refinement"} {
			_, err := eng.AddThought(ctx, AddThoughtRequest{
				Content: c, BranchID: "branch-child", Confidence: 0.7,
			})
			So(err, ShouldBeNil)
		}
		So(eng.AddCrossRef("branch-child", "branch-root", graph.CrossRefBuildsUpon, "refines", 0.6), ShouldBeNil)

		var first bytes.Buffer
		So(eng.Export(&first), ShouldBeNil)

		Convey("When imported into a second engine", func() {
			other := newTestEngine()
			So(other.Import(bytes.NewReader(first.Bytes())), ShouldBeNil)

			Convey("Then counts, edges and events match", func() {
				So(other.Store().ThoughtCount(), ShouldEqual, eng.Store().ThoughtCount())
				So(other.Store().BranchCount(), ShouldEqual, eng.Store().BranchCount())
				So(other.Store().EventCount(), ShouldEqual, eng.Store().EventCount())

				child, ok := other.Store().GetBranch("branch-child")
				So(ok, ShouldBeTrue)
				So(child.ParentID, ShouldEqual, "branch-root")
				So(child.CrossRefs, ShouldHaveLength, 1)
			})

			Convey("And re-exporting reproduces the same stream", func() {
				var second bytes.Buffer
				So(other.Export(&second), ShouldBeNil)

				// The header carries the export timestamp, so compare from
				// the first data chunk onward.
				firstLines := strings.SplitN(first.String(), "\n", 2)
				secondLines := strings.SplitN(second.String(), "\n", 2)
				So(secondLines[1], ShouldEqual, firstLines[1])
			})

			Convey("And the importing engine has no active branch", func() {
				So(other.ActiveBranch(), ShouldBeEmpty)
			})
		})
	})
}
