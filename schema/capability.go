// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package schema

import (
	"fmt"
	"net/url"
	"strings"
)

// Module is a loaded YANG module's schema-level metadata: its root schema
// nodes plus the bits needed to construct its capability URI (spec.md §6,
// grounded on the original agent's agt_cap.c per-module capability
// construction).
type Module struct {
	Name      string
	Namespace string
	Revision  string
	Features  []string
	Deviations []string

	Root *Node
}

// CapabilityURI builds the capability string a <hello> advertises for this
// module: namespace?module=<name>&revision=<date>[&features=...][&deviations=...].
func (m *Module) CapabilityURI() string {
	v := url.Values{}
	v.Set("module", m.Name)
	if m.Revision != "" {
		v.Set("revision", m.Revision)
	}
	if len(m.Features) > 0 {
		v.Set("features", strings.Join(m.Features, ","))
	}
	if len(m.Deviations) > 0 {
		v.Set("deviations", strings.Join(m.Deviations, ","))
	}
	return fmt.Sprintf("%s?%s", m.Namespace, v.Encode())
}

// BaseCapabilities are the protocol-level (non-module) capabilities of
// spec.md §6.
func BaseCapabilities(base11 bool, candidateModel bool, startup bool, rollback bool) []string {
	caps := []string{"urn:ietf:params:netconf:base:1.0"}
	if base11 {
		caps = append(caps, "urn:ietf:params:netconf:base:1.1")
	}
	if candidateModel {
		caps = append(caps, "urn:ietf:params:netconf:capability:candidate:1.0",
			"urn:ietf:params:netconf:capability:confirmed-commit:1.1")
	} else {
		caps = append(caps, "urn:ietf:params:netconf:capability:writable-running:1.0")
	}
	if rollback {
		caps = append(caps, "urn:ietf:params:netconf:capability:rollback-on-error:1.0")
	}
	caps = append(caps,
		"urn:ietf:params:netconf:capability:validate:1.1",
		"urn:ietf:params:netconf:capability:xpath:1.0",
		"urn:ietf:params:netconf:capability:notification:1.0",
		"urn:ietf:params:netconf:capability:interleave:1.0",
		"urn:ietf:params:netconf:capability:partial-lock:1.0",
		"urn:ietf:params:netconf:capability:with-defaults:1.0",
		"urn:ietf:params:netconf:capability:url:1.0?scheme=file",
	)
	if startup {
		caps = append(caps, "urn:ietf:params:netconf:capability:startup:1.0")
	}
	return caps
}
