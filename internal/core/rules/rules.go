// SPDX-License-Identifier: Apache-2.0

// Package rules implements C3, the per-resource rule store. Each resource
// holds an ordered set of non-blocking (open) rules and an ordered set of
// blocking rules; inheritance of the open region and accumulation of the
// blocking region is computed on read, never stored.
package rules

import (
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/availdb/timelinedb/internal/core/graph"
	"github.com/availdb/timelinedb/internal/core/model"
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
)

// Store is the per-tenant rule collection.
type Store struct {
	byResource   *immutable.Map[string, *immutable.Map[string, model.Rule]]
	ruleResource *immutable.Map[string, string]
}

// New returns an empty rule store.
func New() *Store {
	return &Store{
		byResource:   immutable.NewMap[string, *immutable.Map[string, model.Rule]](nil),
		ruleResource: immutable.NewMap[string, string](nil),
	}
}

func (s *Store) rulesFor(resourceID string) *immutable.Map[string, model.Rule] {
	if m, ok := s.byResource.Get(resourceID); ok {
		return m
	}
	return immutable.NewMap[string, model.Rule](nil)
}

// Insert adds a rule, rejecting a duplicate identity.
func (s *Store) Insert(r model.Rule) (*Store, error) {
	if _, ok := s.ruleResource.Get(r.ID); ok {
		return nil, timelineerrors.New(timelineerrors.KindAlreadyExists, "rule already exists").WithResource(r.ID)
	}
	m := s.rulesFor(r.ResourceID).Set(r.ID, r)
	return &Store{
		byResource:   s.byResource.Set(r.ResourceID, m),
		ruleResource: s.ruleResource.Set(r.ID, r.ResourceID),
	}, nil
}

// Update mutates an existing rule's span and/or blocking flag in place.
func (s *Store) Update(id string, mutate func(model.Rule) model.Rule) (*Store, error) {
	resourceID, ok := s.ruleResource.Get(id)
	if !ok {
		return nil, timelineerrors.New(timelineerrors.KindNotFound, "rule not found").WithResource(id)
	}
	m := s.rulesFor(resourceID)
	r, _ := m.Get(id)
	updated := mutate(r)
	updated.ID = r.ID
	updated.ResourceID = r.ResourceID
	m = m.Set(id, updated)
	return &Store{byResource: s.byResource.Set(resourceID, m), ruleResource: s.ruleResource}, nil
}

// Delete removes a rule.
func (s *Store) Delete(id string) (*Store, error) {
	resourceID, ok := s.ruleResource.Get(id)
	if !ok {
		return nil, timelineerrors.New(timelineerrors.KindNotFound, "rule not found").WithResource(id)
	}
	m := s.rulesFor(resourceID).Delete(id)
	return &Store{
		byResource:   s.byResource.Set(resourceID, m),
		ruleResource: s.ruleResource.Delete(id),
	}, nil
}

// Get returns a rule by identity.
func (s *Store) Get(id string) (model.Rule, bool) {
	resourceID, ok := s.ruleResource.Get(id)
	if !ok {
		return model.Rule{}, false
	}
	return s.rulesFor(resourceID).Get(id)
}

// HasRules reports whether resourceID has any rules attached (used by the
// resource-delete "in use" check).
func (s *Store) HasRules(resourceID string) bool {
	return s.rulesFor(resourceID).Len() > 0
}

// DeleteResource drops every rule attached to resourceID. Callers must
// have already verified there are none (resources may only be deleted
// when unused); this exists for symmetry and for forced teardown paths
// such as WAL replay rebuilding a fresh store.
func (s *Store) DeleteResource(resourceID string) *Store {
	m := s.rulesFor(resourceID)
	newRuleResource := s.ruleResource
	itr := m.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		newRuleResource = newRuleResource.Delete(id)
	}
	return &Store{byResource: s.byResource.Delete(resourceID), ruleResource: newRuleResource}
}

func (s *Store) ownSpans(resourceID string, blocking bool) []model.Span {
	var out []model.Span
	itr := s.rulesFor(resourceID).Iterator()
	for !itr.Done() {
		_, r, _ := itr.Next()
		if r.Blocking == blocking {
			out = append(out, r.Span)
		}
	}
	return out
}

// mergeSpans sorts and collapses overlapping or touching spans into a
// minimal disjoint set, so containment and collision checks against a
// "region" are exact.
func mergeSpans(spans []model.Span) []model.Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]model.Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []model.Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func unionContains(merged []model.Span, s model.Span) bool {
	for _, m := range merged {
		if m.Start <= s.Start && s.End <= m.End {
			return true
		}
	}
	return false
}

func unionCollides(merged []model.Span, s model.Span) bool {
	for _, m := range merged {
		if m.Collides(s) {
			return true
		}
	}
	return false
}

// OpenRegion returns resourceID's effective open region: its own
// non-blocking rules if it has any, else the nearest ancestor's own
// non-blocking rules, else empty.
func (s *Store) OpenRegion(g *graph.Graph, resourceID string) []model.Span {
	if own := s.ownSpans(resourceID, false); len(own) > 0 {
		return mergeSpans(own)
	}
	for _, ancestor := range g.Ancestors(resourceID) {
		if ancOwn := s.ownSpans(ancestor, false); len(ancOwn) > 0 {
			return mergeSpans(ancOwn)
		}
	}
	return nil
}

// BlockingRegion returns resourceID's effective blocking region: its own
// blocking rules plus the blocking rules of every ancestor, accumulated.
func (s *Store) BlockingRegion(g *graph.Graph, resourceID string) []model.Span {
	all := s.ownSpans(resourceID, true)
	for _, ancestor := range g.Ancestors(resourceID) {
		all = append(all, s.ownSpans(ancestor, true)...)
	}
	return mergeSpans(all)
}

// InsideOpenRegion reports whether span falls entirely inside resourceID's
// effective open region.
func (s *Store) InsideOpenRegion(g *graph.Graph, resourceID string, span model.Span) bool {
	return unionContains(s.OpenRegion(g, resourceID), span)
}

// CollidesBlockingRegion reports whether span overlaps resourceID's
// effective blocking region.
func (s *Store) CollidesBlockingRegion(g *graph.Graph, resourceID string, span model.Span) bool {
	return unionCollides(s.BlockingRegion(g, resourceID), span)
}
