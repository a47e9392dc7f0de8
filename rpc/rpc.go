// Copyright (c) 2019-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: MPL-2.0

// Package rpc defines the NETCONF PDU wire shapes of spec.md §6: <hello>,
// <rpc>, <rpc-reply>, and <notification>, encoded/decoded with
// encoding/xml.
package rpc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/danos/ncxd/mgmterror"
)

// Hello is the capability-exchange PDU both peers send before any <rpc>.
type Hello struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    int      `xml:"session-id,omitempty"`
}

// Request is a parsed <rpc>: the operation name, the raw inner XML of
// that single child element (left undecoded here so each operation's own
// decoder — edit-config's delta tree, get's filter, and so on — controls
// how it's interpreted), and the message-id the reply must echo.
type Request struct {
	MessageID string
	Operation xml.Name
	Body      []byte
}

// ParseRequest extracts the operation name, message-id, and raw body of
// an <rpc> PDU. Exactly one child element is expected directly under
// <rpc>, per RFC 6241 §4.1.
func ParseRequest(raw []byte) (*Request, error) {
	d := xml.NewDecoder(bytes.NewReader(raw))
	var req Request
	sawRPC := false

	for {
		start, err := nextStart(d)
		if err == io.EOF {
			if !sawRPC {
				return nil, fmt.Errorf("malformed rpc: no <rpc> element found")
			}
			return nil, fmt.Errorf("malformed rpc: no operation element inside <rpc>")
		}
		if err != nil {
			return nil, fmt.Errorf("parsing rpc: %w", err)
		}

		if !sawRPC {
			if start.Name.Local != "rpc" {
				return nil, fmt.Errorf("malformed rpc: expected <rpc>, got <%s>", start.Name.Local)
			}
			for _, a := range start.Attr {
				if a.Name.Local == "message-id" {
					req.MessageID = a.Value
				}
			}
			sawRPC = true
			continue
		}

		req.Operation = start.Name
		bodyStart := d.InputOffset()
		if err := d.Skip(); err != nil {
			return nil, fmt.Errorf("parsing rpc operation %s: %w", start.Name.Local, err)
		}
		bodyEnd := d.InputOffset()
		req.Body = raw[bodyStart:bodyEnd]
		return &req, nil
	}
}

func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// Reply is an <rpc-reply>: either OK (for operations with no return
// payload) or Data (raw inner XML, for get/get-config/get-schema), plus
// zero or more errors (spec.md §7: "Every RPC response is either
// <rpc-reply> with zero or more <rpc-error> and optional data").
type Reply struct {
	XMLName   xml.Name    `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc-reply"`
	MessageID string      `xml:"message-id,attr"`
	OK        *struct{}   `xml:"ok,omitempty"`
	Data      []byte      `xml:",innerxml"`
	Errors    []*RPCError `xml:"rpc-error,omitempty"`
}

// RPCError is the wire form of mgmterror.Error (RFC 6241 §4.3).
type RPCError struct {
	XMLName  xml.Name           `xml:"rpc-error"`
	Type     mgmterror.Layer    `xml:"error-type"`
	Tag      mgmterror.Tag      `xml:"error-tag"`
	Severity mgmterror.Severity `xml:"error-severity"`
	AppTag   string             `xml:"error-app-tag,omitempty"`
	Path     string             `xml:"error-path,omitempty"`
	Message  string             `xml:"error-message,omitempty"`
	Info     *ErrorInfo         `xml:"error-info,omitempty"`
}

// ErrorInfo holds the structured error-info children, e.g.
// <session-id>3</session-id>, whose element names vary per error kind.
type ErrorInfo struct {
	XMLName xml.Name `xml:"error-info"`
	Entries []ErrorInfoEntry
}

// ErrorInfoEntry is one key/value pair of structured error-info; its
// element name is set at runtime from the error-info map key.
type ErrorInfoEntry struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// FromError converts one mgmterror.Error into its wire form.
func FromError(e *mgmterror.Error) *RPCError {
	re := &RPCError{
		Type:     e.Layer,
		Tag:      e.Tag,
		Severity: e.Severity,
		AppTag:   e.AppTag,
		Path:     e.Path,
		Message:  e.Message,
	}
	if len(e.Info) > 0 {
		info := &ErrorInfo{}
		for k, v := range e.Info {
			info.Entries = append(info.Entries, ErrorInfoEntry{XMLName: xml.Name{Local: k}, Value: v})
		}
		re.Info = info
	}
	return re
}

// NewErrorReply builds an <rpc-reply> carrying every error in list.
func NewErrorReply(messageID string, list *mgmterror.List) *Reply {
	r := &Reply{MessageID: messageID}
	for _, e := range list.Errors {
		r.Errors = append(r.Errors, FromError(e))
	}
	return r
}

// NewOKReply builds the empty-ack <rpc-reply><ok/></rpc-reply>.
func NewOKReply(messageID string) *Reply {
	return &Reply{MessageID: messageID, OK: &struct{}{}}
}

// NewDataReply builds an <rpc-reply> wrapping data (already-serialized
// inner XML, e.g. a <data> element for get/get-config).
func NewDataReply(messageID string, data []byte) *Reply {
	return &Reply{MessageID: messageID, Data: data}
}

// Notification is the RFC 5277 <notification> PDU, delivered outside the
// request/reply cycle to a subscribed session.
type Notification struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:notification:1.0 notification"`
	EventTime string   `xml:"eventTime"`
	Event     []byte   `xml:",innerxml"`
}
