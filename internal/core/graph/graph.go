// SPDX-License-Identifier: Apache-2.0

// Package graph implements C2, the resource forest: identity to resource
// record, parent to children set, and ancestor/descendant enumeration.
// Cycle prevention is automatic because a resource's parent is fixed at
// insert and is never updated afterward.
package graph

import (
	"github.com/benbjohnson/immutable"

	"github.com/availdb/timelinedb/internal/core/model"
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
)

// Node pairs a resource record with its precomputed ancestor chain,
// nearest ancestor first. Ancestors are computed once at insert time
// (spec design note: never embed the child set inside the parent record,
// and never let C1/C3/C4 hold back-pointers — only graph owns this).
type Node struct {
	Resource  model.Resource
	Ancestors []string
}

// Graph is the per-tenant resource forest.
type Graph struct {
	nodes    *immutable.Map[string, *Node]
	children *immutable.Map[string, *immutable.Map[string, struct{}]]
}

// New returns an empty forest.
func New() *Graph {
	return &Graph{
		nodes:    immutable.NewMap[string, *Node](nil),
		children: immutable.NewMap[string, *immutable.Map[string, struct{}]](nil),
	}
}

func (g *Graph) childrenFor(id string) *immutable.Map[string, struct{}] {
	if m, ok := g.children.Get(id); ok {
		return m
	}
	return immutable.NewMap[string, struct{}](nil)
}

// Get returns the node for id.
func (g *Graph) Get(id string) (*Node, bool) {
	return g.nodes.Get(id)
}

// Insert adds r to the forest, rejecting a duplicate identity or a
// dangling parent reference.
func (g *Graph) Insert(r model.Resource) (*Graph, error) {
	if _, ok := g.nodes.Get(r.ID); ok {
		return nil, timelineerrors.New(timelineerrors.KindAlreadyExists, "resource already exists").WithResource(r.ID)
	}

	var ancestors []string
	if r.HasParent() {
		parent, ok := g.nodes.Get(r.ParentID)
		if !ok {
			return nil, timelineerrors.New(timelineerrors.KindInvalidReference, "parent resource does not exist").WithResource(r.ParentID)
		}
		ancestors = make([]string, 0, len(parent.Ancestors)+1)
		ancestors = append(ancestors, r.ParentID)
		ancestors = append(ancestors, parent.Ancestors...)
	}

	newNodes := g.nodes.Set(r.ID, &Node{Resource: r, Ancestors: ancestors})
	newChildren := g.children
	if r.HasParent() {
		kids := g.childrenFor(r.ParentID).Set(r.ID, struct{}{})
		newChildren = newChildren.Set(r.ParentID, kids)
	}

	return &Graph{nodes: newNodes, children: newChildren}, nil
}

// Delete removes id, rejecting the operation if id still has children.
// The caller (internal/core/mutation, via C4/C3) is responsible for
// rejecting deletes blocked by attached rules, bookings, or holds before
// calling this.
func (g *Graph) Delete(id string) (*Graph, error) {
	node, ok := g.nodes.Get(id)
	if !ok {
		return nil, timelineerrors.New(timelineerrors.KindNotFound, "resource not found").WithResource(id)
	}
	if g.childrenFor(id).Len() > 0 {
		return nil, timelineerrors.New(timelineerrors.KindHasChildren, "resource has children").WithResource(id)
	}

	newNodes := g.nodes.Delete(id)
	newChildren := g.children.Delete(id)
	if node.Resource.HasParent() {
		siblings := g.childrenFor(node.Resource.ParentID).Delete(id)
		newChildren = newChildren.Set(node.Resource.ParentID, siblings)
	}

	return &Graph{nodes: newNodes, children: newChildren}, nil
}

// Update replaces the mutable attributes of an existing resource (name,
// capacity, buffer_after). Parent cannot be changed after insert.
func (g *Graph) Update(id string, mutate func(model.Resource) model.Resource) (*Graph, error) {
	node, ok := g.nodes.Get(id)
	if !ok {
		return nil, timelineerrors.New(timelineerrors.KindNotFound, "resource not found").WithResource(id)
	}
	updated := mutate(node.Resource)
	updated.ID = node.Resource.ID
	updated.ParentID = node.Resource.ParentID
	return &Graph{
		nodes:    g.nodes.Set(id, &Node{Resource: updated, Ancestors: node.Ancestors}),
		children: g.children,
	}, nil
}

// Ancestors returns id's precomputed ancestor chain, nearest first.
func (g *Graph) Ancestors(id string) []string {
	node, ok := g.nodes.Get(id)
	if !ok {
		return nil
	}
	return node.Ancestors
}

// Children returns id's immediate children identities.
func (g *Graph) Children(id string) []string {
	out := make([]string, 0, g.childrenFor(id).Len())
	itr := g.childrenFor(id).Iterator()
	for !itr.Done() {
		cid, _, _ := itr.Next()
		out = append(out, cid)
	}
	return out
}

// Descendants returns every descendant of id, in no particular order.
func (g *Graph) Descendants(id string) []string {
	var out []string
	var walk func(string)
	walk = func(pid string) {
		itr := g.childrenFor(pid).Iterator()
		for !itr.Done() {
			cid, _, _ := itr.Next()
			out = append(out, cid)
			walk(cid)
		}
	}
	walk(id)
	return out
}

// Len returns the number of resources in the forest.
func (g *Graph) Len() int { return g.nodes.Len() }
