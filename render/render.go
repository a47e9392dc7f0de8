// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package render serializes value-tree subtrees into the <data> content of
// a <get>/<get-config> <rpc-reply> (spec.md §5 "get/get-config"), and
// applies RFC 6241 §6 subtree filtering beforehand.
package render

import (
	"bytes"
	"fmt"

	"github.com/danos/ncxd/valtree"
)

// ToXML serializes every child of root (root itself is the synthetic
// aggregate schema node, not part of the wire output).
func ToXML(root *valtree.Node) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range root.Children() {
		if err := encodeNode(&buf, c); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeNode(buf *bytes.Buffer, n *valtree.Node) error {
	if n.IsVirtual() {
		materialized, err := n.Materialize()
		if err != nil {
			return err
		}
		n = materialized
	}
	name := n.Name()
	if n.Payload != nil {
		fmt.Fprintf(buf, "<%s>%s</%s>", name, escape(n.Payload.String()), name)
		return nil
	}
	if len(n.Children()) == 0 {
		fmt.Fprintf(buf, "<%s/>", name)
		return nil
	}
	fmt.Fprintf(buf, "<%s>", name)
	for _, c := range n.Children() {
		if err := encodeNode(buf, c); err != nil {
			return err
		}
	}
	fmt.Fprintf(buf, "</%s>", name)
	return nil
}

func escape(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// Prune applies an RFC 6241 §6 subtree filter: the copy returned retains
// only subtrees reachable through a path of matching filter nodes. A leaf
// selection node with non-empty content restricts by value; an empty
// container/list selection node admits the whole matching subtree as-is.
// A nil filter is the empty filter, matching everything.
func Prune(data, filter *valtree.Node) *valtree.Node {
	if filter == nil {
		return data
	}
	return pruneChildren(data, filter)
}

func pruneChildren(data, filter *valtree.Node) *valtree.Node {
	out := &valtree.Node{Schema: data.Schema, Payload: data.Payload, KeyValues: data.KeyValues}
	for _, fc := range filter.Children() {
		for _, dc := range data.Children() {
			if dc.Name() != fc.Name() {
				continue
			}
			if len(fc.KeyValues) > 0 && !sameKeys(fc.KeyValues, dc.KeyValues) {
				continue
			}
			if fc.Payload != nil && fc.Payload.String() != "" {
				if dc.Payload == nil || dc.Payload.String() != fc.Payload.String() {
					continue
				}
				out.AddChild(dc.Clone())
				continue
			}
			if len(fc.Children()) == 0 {
				out.AddChild(dc.Clone())
				continue
			}
			out.AddChild(pruneChildren(dc, fc))
		}
	}
	return out
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
