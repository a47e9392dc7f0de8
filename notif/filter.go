// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package notif

import (
	"github.com/danos/ncxd/valtree"
	"github.com/danos/ncxd/xpath"
)

// Filter is a create-subscription filter: at most one of Subtree or XPath
// is set (spec.md §6 "filter (subtree or XPath)").
type Filter struct {
	Subtree *valtree.Node
	XPath   string
}

func (f Filter) isEmpty() bool {
	return f.Subtree == nil && f.XPath == ""
}

// Match reports whether payload passes the filter (spec.md §4.5 "Filter
// evaluation"): subtree filters match structurally (names agree and every
// filter child matches some payload child); XPath filters evaluate
// against payload as the context node, non-empty result meaning deliver.
func (f Filter) Match(payload *valtree.Node) (bool, error) {
	if f.isEmpty() {
		return true, nil
	}
	if f.XPath != "" {
		return xpath.BooleanResult(f.XPath, payload)
	}
	return matchesSubtree(f.Subtree, payload), nil
}

func matchesSubtree(filter, payload *valtree.Node) bool {
	if filter == nil {
		return true
	}
	if filter.Name() != payload.Name() {
		return false
	}
	for _, fc := range filter.Children() {
		found := false
		for _, pc := range payload.Children() {
			if matchesSubtree(fc, pc) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
