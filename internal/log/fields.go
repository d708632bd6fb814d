// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldEvent     = "event"

	// Pipeline fields
	FieldChannel   = "channel"
	FieldChannelID = "channel_id"
	FieldSource    = "source"
	FieldPath      = "path"
	FieldScore     = "score"

	// Run accounting fields
	FieldAccepted = "accepted"
	FieldMissing  = "missing"
	FieldStale    = "stale"
)
