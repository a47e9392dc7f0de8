// Copyright (c) 2019-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: MPL-2.0

package rpc

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/danos/ncxd/mgmterror"
)

func TestParseRequestExtractsOperationAndBody(t *testing.T) {
	raw := []byte(`<rpc message-id="101" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <edit-config><target><running/></target><config><foo>bar</foo></config></edit-config>
</rpc>`)

	req, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.MessageID != "101" {
		t.Fatalf("expected message-id 101, got %q", req.MessageID)
	}
	if req.Operation.Local != "edit-config" {
		t.Fatalf("expected operation edit-config, got %q", req.Operation.Local)
	}
	if !strings.Contains(string(req.Body), "<foo>bar</foo>") {
		t.Fatalf("expected body to contain config payload, got %q", req.Body)
	}
}

func TestParseRequestMissingOperationErrors(t *testing.T) {
	raw := []byte(`<rpc message-id="1"></rpc>`)
	if _, err := ParseRequest(raw); err == nil {
		t.Fatalf("expected error for rpc with no operation element")
	}
}

func TestParseRequestNotRPCErrors(t *testing.T) {
	raw := []byte(`<hello><capabilities/></hello>`)
	if _, err := ParseRequest(raw); err == nil {
		t.Fatalf("expected error for non-rpc root element")
	}
}

func TestNewErrorReplyMarshalsRPCErrors(t *testing.T) {
	list := &mgmterror.List{}
	list.Add(mgmterror.New(mgmterror.TagDataExists, "node already exists").WithPath("/foo"))

	reply := NewErrorReply("42", list)
	out, err := xml.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "data-exists") || !strings.Contains(s, "/foo") {
		t.Fatalf("expected marshaled reply to contain error tag and path, got %q", s)
	}
}

func TestNewOKReplyMarshalsEmptyAck(t *testing.T) {
	reply := NewOKReply("7")
	out, err := xml.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(out), "<ok>") {
		t.Fatalf("expected <ok/> in reply, got %q", out)
	}
}
