// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package txn

import (
	"fmt"

	"github.com/danos/ncxd/callback"
	"github.com/danos/ncxd/mgmterror"
	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/types"
	"github.com/danos/ncxd/valtree"
	"github.com/danos/ncxd/xpath"
)

// touched is one node visited while merging a delta into a scratch tree, in
// document order, kept so phase callbacks can be invoked afterward in the
// same order (spec.md §4.2 "Callback contract").
type touched struct {
	live  *valtree.Node // the resulting node, nil if it was deleted/removed
	pre   *valtree.Node // the pre-edit live node, nil if none existed (spec.md §4.2 callback "current" value)
	delta *valtree.Node
	op    callback.Operation
}

func toCallbackOp(op valtree.EditOp) callback.Operation {
	switch op {
	case valtree.OpReplace:
		return callback.OpReplace
	case valtree.OpCreate:
		return callback.OpCreate
	case valtree.OpDelete:
		return callback.OpDelete
	case valtree.OpRemove:
		return callback.OpRemove
	}
	return callback.OpMerge
}

// effectiveOp resolves a delta node's operation: an explicit "operation"
// attribute on the node itself always wins; otherwise it inherits the
// nearest explicit ancestor's operation, falling all the way back to
// inherited (spec.md §4.2 "nested-operation attribute rules").
func effectiveOp(nodeOp valtree.EditOp, inherited valtree.EditOp) valtree.EditOp {
	if nodeOp != valtree.OpNotSet {
		return nodeOp
	}
	return inherited
}

// planMerge merges tx.Delta into a clone of base, per the per-node operation
// table of spec.md §4.2. It never mutates base. The returned touched slice
// lists every node the merge visited, in document (pre-order) order, for
// the caller to drive phase callbacks over.
func planMerge(base *valtree.Node, delta *valtree.Node, rootOp valtree.EditOp, ms *schema.ModelSet, errs *mgmterror.List) (*valtree.Node, []*touched) {
	result := base.Clone()
	var out []*touched
	mergeChildren(result, delta, rootOp, ms, &out, errs)
	return result, out
}

func mergeChildren(parent *valtree.Node, deltaParent *valtree.Node, inheritedOp valtree.EditOp, ms *schema.ModelSet, out *[]*touched, errs *mgmterror.List) {
	if deltaParent == nil {
		return
	}
	for _, dc := range deltaParent.Children() {
		op := effectiveOp(dc.Op, inheritedOp)
		existing, found := parent.FindChild(dc.Identity())
		result, err := mergeNode(existing, found, dc, op, ms, out, errs)
		if err != nil {
			errs.Add(err)
			continue
		}
		switch {
		case result == nil && found:
			parent.RemoveChild(dc.Identity())
		case result != nil:
			parent.ReplaceChild(result)
		}
	}
}

// mergeNode applies op to a single delta node dc against its (possibly
// absent) live counterpart. It returns the node to install in the parent's
// child set, or nil if the node should end up absent.
func mergeNode(live *valtree.Node, liveExists bool, dc *valtree.Node, op valtree.EditOp, ms *schema.ModelSet, out *[]*touched, errs *mgmterror.List) (*valtree.Node, *mgmterror.Error) {
	path := canonicalPath(dc)

	switch op {
	case valtree.OpNotSet:
		// default-operation="none" and no explicit operation attribute:
		// leave this node exactly as it is in the live tree.
		if !liveExists {
			return nil, nil
		}
		return live, nil

	case valtree.OpCreate:
		if liveExists {
			return nil, mgmterror.New(mgmterror.TagDataExists,
				fmt.Sprintf("node %s already exists", path)).WithPath(path)
		}
		t := &touched{pre: live, delta: dc, op: toCallbackOp(op)}
		*out = append(*out, t)
		t.live = buildFresh(dc, op, ms, out, errs)
		return t.live, nil

	case valtree.OpDelete:
		if !liveExists {
			return nil, mgmterror.New(mgmterror.TagDataMissing,
				fmt.Sprintf("node %s does not exist", path)).WithPath(path)
		}
		*out = append(*out, &touched{live: nil, pre: live, delta: dc, op: toCallbackOp(op)})
		return nil, nil

	case valtree.OpRemove:
		if !liveExists {
			return nil, nil // no-op, not an error
		}
		*out = append(*out, &touched{live: nil, pre: live, delta: dc, op: toCallbackOp(op)})
		return nil, nil

	case valtree.OpReplace:
		t := &touched{pre: live, delta: dc, op: toCallbackOp(op)}
		*out = append(*out, t)
		t.live = buildFresh(dc, op, ms, out, errs)
		return t.live, nil

	default: // merge
		if !liveExists {
			t := &touched{pre: live, delta: dc, op: toCallbackOp(op)}
			*out = append(*out, t)
			t.live = buildFresh(dc, op, ms, out, errs)
			return t.live, nil
		}
		merged := live.Clone()
		if dc.Payload != nil {
			merged.Payload = dc.Payload
		}
		merged.KeyValues = append([]string(nil), live.KeyValues...)
		*out = append(*out, &touched{live: merged, pre: live, delta: dc, op: toCallbackOp(op)})
		mergeChildren(merged, dc, op, ms, out, errs)
		return merged, nil
	}
}

// buildFresh materializes a brand-new subtree from a delta node (used by
// create/replace, and by merge onto a node with no live counterpart): the
// node's own value, plus each child merged against an empty base so any
// further-nested explicit operations (e.g. a "delete" nested inside a
// "replace") still take effect against a not-found live side.
func buildFresh(dc *valtree.Node, op valtree.EditOp, ms *schema.ModelSet, out *[]*touched, errs *mgmterror.List) *valtree.Node {
	fresh := &valtree.Node{
		Schema:    dc.Schema,
		Payload:   dc.Payload,
		KeyValues: append([]string(nil), dc.KeyValues...),
	}
	mergeChildren(fresh, dc, op, ms, out, errs)
	return fresh
}

func canonicalPath(dc *valtree.Node) string {
	if dc.Schema != nil {
		return dc.Schema.CanonicalPath()
	}
	return "/" + dc.Name()
}

// checkStructuralConstraints walks the whole of result (the merged scratch
// tree) and reports min/max-elements and mandatory violations anywhere in
// it (spec.md §4.2 "structural constraints"); unique is not checked.
// schema fields drive the checks so this stays independent of any
// particular wire encoding.
func checkStructuralConstraints(result *valtree.Node, errs *mgmterror.List) {
	checkNode(result, result, errs)
}

func checkNode(n *valtree.Node, root *valtree.Node, errs *mgmterror.List) {
	if n.Schema == nil {
		for _, c := range n.Children() {
			checkNode(c, root, errs)
		}
		return
	}
	if n.Schema.Kind == schema.List || n.Schema.Kind == schema.LeafList {
		checkListCardinality(n, errs)
	}
	if n.Schema.Kind == schema.Leaf || n.Schema.Kind == schema.LeafList {
		checkLeafValue(n, root, errs)
	}
	if n.Schema.Mandatory && n.Schema.Kind != schema.List && n.Schema.Kind != schema.LeafList {
		if n.Payload == nil && len(n.Children()) == 0 && !n.Schema.HasDefault {
			errs.Add(mgmterror.New(mgmterror.TagDataMissing,
				fmt.Sprintf("mandatory node %s is not present", n.Schema.CanonicalPath())).
				WithPath(n.Schema.CanonicalPath()))
		}
	}
	for _, c := range n.Children() {
		checkNode(c, root, errs)
	}
}

func checkListCardinality(parent *valtree.Node, errs *mgmterror.List) {
	// parent here is itself one list/leaf-list entry's container context is
	// not modeled separately: count siblings sharing parent.Schema among
	// parent.Parent's children.
	p := parent.Parent
	if p == nil {
		return
	}
	count := 0
	for _, c := range p.Children() {
		if c.Schema == parent.Schema {
			count++
		}
	}
	if parent.Schema.MinElements > 0 && count < parent.Schema.MinElements {
		errs.Add(mgmterror.New(mgmterror.TagDataMissing,
			fmt.Sprintf("%s has %d entries, fewer than min-elements %d",
				parent.Schema.CanonicalPath(), count, parent.Schema.MinElements)).
			WithPath(parent.Schema.CanonicalPath()))
	}
	if parent.Schema.MaxElements > 0 && count > parent.Schema.MaxElements {
		errs.Add(mgmterror.New(mgmterror.TagTooBig,
			fmt.Sprintf("%s has %d entries, more than max-elements %d",
				parent.Schema.CanonicalPath(), count, parent.Schema.MaxElements)).
			WithPath(parent.Schema.CanonicalPath()))
	}
}

// checkLeafValue type-checks a leaf/leaf-list node's payload string form
// and, for a require-instance leafref, checks the target exists somewhere
// under root (spec.md §4.1 "require-instance", §4.2 "type validation").
func checkLeafValue(n *valtree.Node, root *valtree.Node, errs *mgmterror.List) {
	if n.Schema == nil || n.Schema.Typedef == nil || n.Payload == nil {
		return
	}
	td := n.Schema.Typedef
	raw := n.Payload.String()
	if err := td.Validate(raw); err != nil {
		errs.Add(mgmterror.New(mgmterror.TagInvalidValue, err.Error()).WithPath(n.Schema.CanonicalPath()))
		return
	}
	if td.Root().BaseKind == types.Leafref && td.RequireInstance && td.LeafrefCompiled != nil {
		found := false
		for _, r := range xpath.Eval(td.LeafrefCompiled, root) {
			if v, ok := r.XValue(); ok && v == raw {
				found = true
				break
			}
		}
		if !found {
			errs.Add(mgmterror.New(mgmterror.TagDataMissing,
				fmt.Sprintf("leafref %s has no instance for value %q", n.Schema.CanonicalPath(), raw)).
				WithPath(n.Schema.CanonicalPath()))
		}
	}
}
