// Package validate implements the tool-input middleware: the transport
// coercion pass followed by JSON Schema validation.
package validate

import (
	"encoding/json"
	"math"
	"strconv"
)

// Known array and numeric fields. Some callers pre-serialize arrays and
// numbers as strings; the coercion pass repairs exactly these fields and
// leaves everything else untouched. The lists are part of the tool
// contract.
var (
	knownArrayFields = map[string]bool{
		"tags":                   true,
		"aliases":                true,
		"contextTags":            true,
		"dependencies":           true,
		"capabilities":           true,
		"alternativesConsidered": true,
		"affectedComponents":     true,
		"contextRefs":            true,
		"taskRefs":               true,
		"paths":                  true,
	}

	knownNumericFields = map[string]bool{
		"limit":               true,
		"maxDepth":            true,
		"relevanceScore":      true,
		"confidenceScore":     true,
		"priority":            true,
		"estimatedHours":      true,
		"actualHours":         true,
		"hours_back":          true,
		"confidenceThreshold": true,
		"minConfidence":       true,
	}
)

// Coerce repairs string-encoded arrays and numbers in the known field
// lists. Values already in their native form pass through unchanged, so
// the pass is idempotent. The input map is not mutated.
func Coerce(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(args))
	for key, value := range args {
		out[key] = coerceField(key, value)
	}
	return out
}

func coerceField(key string, value any) any {
	str, isString := value.(string)
	if !isString {
		return value
	}

	if knownArrayFields[key] {
		var arr []any
		if err := json.Unmarshal([]byte(str), &arr); err == nil {
			return arr
		}
		return value
	}

	if knownNumericFields[key] {
		if n, err := strconv.ParseFloat(str, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n
		}
		return value
	}

	return value
}
