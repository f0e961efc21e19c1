// Package filter turns a loosely-typed filter document into a typed AST and
// compiles it into a parameterized SQL predicate over the customers table.
//
// A filter document is a JSON object mapping attribute keys to either a
// literal value or an {operator, value} object:
//
//	{
//	  "gender": {"operator": "eq", "value": "M"},
//	  "age":    {"operator": "between", "value": [30, 39]},
//	  "grade":  ["VIP", "VVIP"],
//	  "custom.취미": {"operator": "contains", "value": "골프"}
//	}
//
// Keys carrying the "custom." prefix read the custom_fields side-channel;
// everything else must be a known customer column. Entries that cannot be
// understood are recorded as skipped, never treated as an error: a bad
// entry narrows the filter to "no constraint" for that key. The skip list
// is surfaced so callers can audit what was ignored.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator enumerates the supported comparison operators.
type Operator string

const (
	OpEq       Operator = "eq"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpBetween  Operator = "between"
	OpIn       Operator = "in"
	OpContains Operator = "contains"
)

// CustomPrefix marks keys stored in the custom_fields side-channel.
const CustomPrefix = "custom."

// Condition is one parsed filter entry. The operator acts as the variant
// tag: eq/gte/lte/contains use Value, between uses Value and ValueTo, and
// in uses Values.
type Condition struct {
	Key     string
	Op      Operator
	Value   interface{}
	ValueTo interface{}
	Values  []interface{}
}

// Skip records one document entry that was parsed but will not constrain
// the result, and why.
type Skip struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Document is the typed form of a filter document. JSON maps carry no key
// order, so compilation sorts conditions by key to keep the emitted SQL
// deterministic.
type Document struct {
	Conditions []Condition
	Skipped    []Skip
}

// Empty reports whether the document applies no constraints at all.
func (d *Document) Empty() bool {
	return d == nil || len(d.Conditions) == 0
}

// Parse converts raw JSON into a Document. A nil/empty/`null` payload is a
// valid empty document. Parse only fails on malformed JSON; individually
// bad entries are skipped, not fatal.
func Parse(raw json.RawMessage) (*Document, error) {
	doc := &Document{}
	if len(raw) == 0 || string(raw) == "null" {
		return doc, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse filter document: %w", err)
	}

	for key, rawVal := range entries {
		cond, skip := parseEntry(key, rawVal)
		if skip != nil {
			doc.Skipped = append(doc.Skipped, *skip)
			continue
		}
		doc.Conditions = append(doc.Conditions, cond)
	}
	return doc, nil
}

func parseEntry(key string, raw json.RawMessage) (Condition, *Skip) {
	var val interface{}
	if err := json.Unmarshal(raw, &val); err != nil {
		return Condition{}, &Skip{Key: key, Reason: "unreadable value"}
	}

	switch v := val.(type) {
	case nil:
		return Condition{}, &Skip{Key: key, Reason: "null value"}

	case map[string]interface{}:
		return parseOperatorEntry(key, v)

	case []interface{}:
		// Bare array is shorthand for "in".
		if len(v) == 0 {
			return Condition{}, &Skip{Key: key, Reason: "empty list"}
		}
		return Condition{Key: key, Op: OpIn, Values: v}, nil

	default:
		// Bare scalar is shorthand for "eq".
		return Condition{Key: key, Op: OpEq, Value: v}, nil
	}
}

func parseOperatorEntry(key string, obj map[string]interface{}) (Condition, *Skip) {
	opRaw, _ := obj["operator"].(string)
	op := Operator(strings.ToLower(strings.TrimSpace(opRaw)))
	value, hasValue := obj["value"]

	switch op {
	case OpEq, OpGte, OpLte, OpContains:
		if !hasValue || value == nil {
			return Condition{}, &Skip{Key: key, Reason: "missing value"}
		}
		return Condition{Key: key, Op: op, Value: value}, nil

	case OpBetween:
		pair, ok := value.([]interface{})
		if !ok || len(pair) != 2 {
			return Condition{}, &Skip{Key: key, Reason: "between requires [low, high]"}
		}
		return Condition{Key: key, Op: op, Value: pair[0], ValueTo: pair[1]}, nil

	case OpIn:
		list, ok := value.([]interface{})
		if !ok || len(list) == 0 {
			return Condition{}, &Skip{Key: key, Reason: "in requires a non-empty list"}
		}
		return Condition{Key: key, Op: op, Values: list}, nil

	default:
		return Condition{}, &Skip{Key: key, Reason: fmt.Sprintf("unknown operator %q", opRaw)}
	}
}
