// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/availdb/timelinedb/internal/core/graph"
	"github.com/availdb/timelinedb/internal/core/model"
)

func TestOpenRegion_OwnRulesWin(t *testing.T) {
	g := graph.New()
	g, _ = g.Insert(model.Resource{ID: "r1", Capacity: 1})
	s := New()
	s, err := s.Insert(model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 10000}})
	require.NoError(t, err)

	assert.True(t, s.InsideOpenRegion(g, "r1", model.Span{Start: 1000, End: 2000}))
	assert.False(t, s.InsideOpenRegion(g, "r1", model.Span{Start: 9000, End: 11000}))
}

func TestOpenRegion_InheritsFromNearestAncestor(t *testing.T) {
	g := graph.New()
	g, _ = g.Insert(model.Resource{ID: "parent", Capacity: 1})
	g, _ = g.Insert(model.Resource{ID: "child", ParentID: "parent", Capacity: 1})
	s := New()
	s, _ = s.Insert(model.Rule{ID: "rule1", ResourceID: "parent", Span: model.Span{Start: 0, End: 100000}})

	assert.True(t, s.InsideOpenRegion(g, "child", model.Span{Start: 1000, End: 2000}))
}

func TestOpenRegion_EmptyWhenNoAncestorDeclares(t *testing.T) {
	g := graph.New()
	g, _ = g.Insert(model.Resource{ID: "r1", Capacity: 1})
	s := New()
	assert.False(t, s.InsideOpenRegion(g, "r1", model.Span{Start: 0, End: 1}))
}

func TestBlockingRegion_AccumulatesUpward(t *testing.T) {
	g := graph.New()
	g, _ = g.Insert(model.Resource{ID: "parent", Capacity: 1})
	g, _ = g.Insert(model.Resource{ID: "child", ParentID: "parent", Capacity: 1})
	s := New()
	s, _ = s.Insert(model.Rule{ID: "openParent", ResourceID: "parent", Span: model.Span{Start: 0, End: 100000}})
	s, _ = s.Insert(model.Rule{ID: "blockParent", ResourceID: "parent", Span: model.Span{Start: 5000, End: 6000}, Blocking: true})
	s, _ = s.Insert(model.Rule{ID: "blockChild", ResourceID: "child", Span: model.Span{Start: 7000, End: 8000}, Blocking: true})

	assert.True(t, s.CollidesBlockingRegion(g, "child", model.Span{Start: 5500, End: 5700}))
	assert.True(t, s.CollidesBlockingRegion(g, "child", model.Span{Start: 7500, End: 7700}))
	assert.False(t, s.CollidesBlockingRegion(g, "child", model.Span{Start: 1000, End: 2000}))
	// blocking does not accumulate downward onto the parent.
	assert.False(t, s.CollidesBlockingRegion(g, "parent", model.Span{Start: 7500, End: 7700}))
}

func TestMergeSpans_CollapsesAdjacentIntoOneOpenRegion(t *testing.T) {
	g := graph.New()
	g, _ = g.Insert(model.Resource{ID: "r1", Capacity: 1})
	s := New()
	s, _ = s.Insert(model.Rule{ID: "a", ResourceID: "r1", Span: model.Span{Start: 0, End: 5000}})
	s, _ = s.Insert(model.Rule{ID: "b", ResourceID: "r1", Span: model.Span{Start: 5000, End: 10000}})

	assert.True(t, s.InsideOpenRegion(g, "r1", model.Span{Start: 4000, End: 6000}))
}

func TestDeleteAndHasRules(t *testing.T) {
	s := New()
	s, _ = s.Insert(model.Rule{ID: "a", ResourceID: "r1", Span: model.Span{Start: 0, End: 5000}})
	assert.True(t, s.HasRules("r1"))

	s, err := s.Delete("a")
	require.NoError(t, err)
	assert.False(t, s.HasRules("r1"))
}
