// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package warnme exports UC Berkeley WarnMe alert emails from a Gmail
// mailbox for later analysis against the crime table.
package warnme

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSender is the address WarnMe alerts come from.
const DefaultSender = "ucberkeley@warnme.berkeley.edu"

// Query describes a Gmail search. Zero fields are omitted from the
// generated expression.
type Query struct {
	Sender    string    // from:
	Subject   string    // subject:
	NewerThan string    // newer_than:, e.g. "180d"
	After     time.Time // after:, epoch seconds
}

// String renders the query in Gmail's search syntax.
func (q Query) String() string {
	var parts []string

	if q.Sender != "" {
		parts = append(parts, "from:"+q.Sender)
	}

	if q.Subject != "" {
		parts = append(parts, fmt.Sprintf("subject:%q", q.Subject))
	}

	if q.NewerThan != "" {
		parts = append(parts, "newer_than:"+q.NewerThan)
	}

	if !q.After.IsZero() {
		parts = append(parts, fmt.Sprintf("after:%d", q.After.Unix()))
	}

	return strings.Join(parts, " ")
}
