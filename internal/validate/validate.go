package validate

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/aidis/internal/errs"
)

var schemaCache sync.Map

// Validate runs the full input middleware for one tool: the coercion pass,
// then a JSON Schema check of required fields, types, enums and length
// bounds. It returns the coerced argument map, or InvalidParams with the
// validator's reason.
func Validate(toolName string, schema json.RawMessage, args map[string]any) (map[string]any, error) {
	coerced := Coerce(args)

	if len(schema) == 0 {
		return coerced, nil
	}

	compiled, err := compileSchema(toolName, schema)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "compile schema for %s", toolName)
	}

	// Round-trip through JSON so typed values (ints, structs) become the
	// plain shapes the validator expects.
	payload, err := json.Marshal(coerced)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidParams, err, "encode arguments")
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, errs.Wrap(errs.KindInvalidParams, err, "decode arguments")
	}

	if err := compiled.Validate(decoded); err != nil {
		return nil, errs.Wrap(errs.KindInvalidParams, err, "invalid arguments for %s", toolName)
	}

	if normalized, ok := decoded.(map[string]any); ok {
		return normalized, nil
	}
	return coerced, nil
}

func compileSchema(toolName string, schema json.RawMessage) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(toolName); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString(toolName+".schema.json", string(schema))
	if err != nil {
		return nil, err
	}
	schemaCache.Store(toolName, compiled)
	return compiled, nil
}
