// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package edit turns the raw inner XML of an <edit-config>'s <config>
// element into a valtree delta tree the transaction engine can apply
// (spec.md §4.2). The wire element names are matched against the
// configuration schema to resolve each node's kind, type, and key leaves;
// a name with no schema match is an unknown-element error rather than a
// silent no-op, per RFC 6241 §7.2.
package edit

import (
	"encoding/xml"

	"github.com/danos/ncxd/mgmterror"
	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/valtree"
)

const netconfNS = "urn:ietf:params:xml:ns:netconf:base:1.0"

// node is the generic unmarshal target for one wire element: its identity
// isn't known until decode time, so XMLName/Children mirror whatever the
// peer sent and get resolved against the schema afterward.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr  `xml:",any,attr"`
	Value    string      `xml:",chardata"`
	Children []node      `xml:",any"`
}

// Parse unmarshals raw config bytes into the generic wire tree.
func Parse(raw []byte) (*node, error) {
	var n node
	if err := xml.Unmarshal(raw, &n); err != nil {
		return nil, mgmterror.New(mgmterror.TagMalformedMessage, err.Error())
	}
	return &n, nil
}

func (n *node) attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == netconfNS && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func parseOp(raw string) (valtree.EditOp, error) {
	switch raw {
	case "", "merge":
		return valtree.OpMerge, nil
	case "replace":
		return valtree.OpReplace, nil
	case "create":
		return valtree.OpCreate, nil
	case "delete":
		return valtree.OpDelete, nil
	case "remove":
		return valtree.OpRemove, nil
	}
	return valtree.OpNotSet, mgmterror.New(mgmterror.TagUnknownAttribute, "unsupported operation \""+raw+"\"")
}

func parseInsert(n *node) *valtree.InsertAttr {
	mode, ok := n.attr("insert")
	if !ok {
		return nil
	}
	ia := &valtree.InsertAttr{}
	switch mode {
	case "first":
		ia.Mode = valtree.InsertFirst
	case "last":
		ia.Mode = valtree.InsertLast
	case "before":
		ia.Mode = valtree.InsertBefore
	case "after":
		ia.Mode = valtree.InsertAfter
	default:
		return nil
	}
	if ia.Mode == valtree.InsertBefore || ia.Mode == valtree.InsertAfter {
		if k, ok := n.attr("key"); ok {
			ia.Key = k
		} else if v, ok := n.attr("value"); ok {
			ia.Key = v
		}
	}
	return ia
}

// Build resolves wire node n (a direct child of <config>) against schema
// container sn, producing the delta subtree used by txn.Transaction. The
// inherited operation (default-operation, or the parent edit_config's
// own op) is passed in as parentOp.
func Build(n *node, sn *schema.Node, parentOp valtree.EditOp) (*valtree.Node, error) {
	child, ok := sn.Child(n.XMLName.Local)
	if !ok {
		return nil, mgmterror.New(mgmterror.TagUnknownElement, "unknown element \""+n.XMLName.Local+"\"").
			WithPath(sn.CanonicalPath() + "/" + n.XMLName.Local)
	}
	return buildNode(n, child, parentOp)
}

func buildNode(n *node, sn *schema.Node, parentOp valtree.EditOp) (*valtree.Node, error) {
	opRaw, _ := n.attr("operation")
	op, err := parseOp(opRaw)
	if err != nil {
		return nil, err
	}
	if opRaw == "" {
		op = parentOp
	}

	v := valtree.NewNode(sn)
	v.Op = op
	v.Insert = parseInsert(n)

	switch sn.Kind {
	case schema.Leaf, schema.LeafList:
		if op != valtree.OpDelete && op != valtree.OpRemove {
			p, err := valtree.FromString(sn.Typedef.BaseKind, sn.Typedef.FractionDigits, n.Value)
			if err != nil {
				return nil, mgmterror.New(mgmterror.TagInvalidValue, err.Error()).
					WithPath(sn.CanonicalPath())
			}
			v.Payload = p
		}
		return v, nil

	case schema.List:
		for _, kn := range sn.Keys {
			for _, c := range n.Children {
				if c.XMLName.Local == kn {
					v.KeyValues = append(v.KeyValues, c.Value)
				}
			}
		}
		fallthrough
	default:
		for _, cn := range n.Children {
			cv, err := Build(&cn, sn, op)
			if err != nil {
				return nil, err
			}
			v.AddChild(cv)
		}
		return v, nil
	}
}

// BuildConfig resolves every top-level child of a <config> element against
// root — the same aggregate schema node the target datastore is rooted at,
// its children being each loaded module's top-level data nodes — producing
// the delta tree the transaction engine walks alongside the live tree.
func BuildConfig(raw []byte, root *schema.Node, defaultOp valtree.EditOp) (*valtree.Node, error) {
	cfg, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	delta := valtree.NewNode(root)
	delta.Op = defaultOp
	for _, cn := range cfg.Children {
		cv, err := Build(&cn, root, defaultOp)
		if err != nil {
			return nil, err
		}
		delta.AddChild(cv)
	}
	return delta, nil
}
