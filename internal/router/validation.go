package router

import (
	"github.com/careerbox/presenced/internal/fault"
	"github.com/tidwall/gjson"
)

// fieldRule is one declarative constraint on an inbound payload field.
type fieldRule struct {
	path     string
	kind     gjson.Type
	required bool
	minLen   int
	maxLen   int
}

// schemas gate every client event before its handler runs. Validation
// failure short-circuits the handler with a validation error.
var schemas = map[string][]fieldRule{
	EventValidateProfileID: {
		{path: "profileId", kind: gjson.String, required: true, minLen: 1, maxLen: 100},
	},
	EventSearchSuggestions: {
		{path: "query", kind: gjson.String, required: true, maxLen: 200},
	},
	EventJoinRoom: {
		{path: "room", kind: gjson.String, required: true, minLen: 1, maxLen: 100},
	},
	EventLeaveRoom: {
		{path: "room", kind: gjson.String, required: true, minLen: 1, maxLen: 100},
	},
	EventUpdateStatus: {
		{path: "status", kind: gjson.String, required: true, minLen: 1, maxLen: 20},
	},
	EventTyping: {
		{path: "room", kind: gjson.String, required: true, minLen: 1, maxLen: 100},
		{path: "isTyping", kind: gjson.True, required: true},
	},
	EventActivity: {
		{path: "action", kind: gjson.String, required: true, minLen: 1, maxLen: 100},
		{path: "target", kind: gjson.String, maxLen: 200},
		{path: "metadata", kind: gjson.JSON},
	},
	EventAdminMonitor: nil,
	EventPing:         nil,
}

func validatePayload(event string, payload []byte) error {
	rules, known := schemas[event]
	if !known {
		return fault.Newf(fault.Validation, "unknown event %q", event)
	}
	for _, rule := range rules {
		value := gjson.GetBytes(payload, rule.path)
		if !value.Exists() {
			if rule.required {
				return fault.Newf(fault.Validation, "event %s: missing field %q", event, rule.path)
			}
			continue
		}
		if !typeMatches(rule.kind, value) {
			return fault.Newf(fault.Validation, "event %s: field %q has wrong type", event, rule.path)
		}
		if value.Type == gjson.String {
			n := len(value.String())
			if rule.minLen > 0 && n < rule.minLen {
				return fault.Newf(fault.Validation, "event %s: field %q too short", event, rule.path)
			}
			if rule.maxLen > 0 && n > rule.maxLen {
				return fault.Newf(fault.Validation, "event %s: field %q too long", event, rule.path)
			}
		}
	}
	return nil
}

func typeMatches(want gjson.Type, value gjson.Result) bool {
	switch want {
	case gjson.True:
		// either boolean literal
		return value.Type == gjson.True || value.Type == gjson.False
	case gjson.JSON:
		return value.IsObject()
	default:
		return value.Type == want
	}
}
