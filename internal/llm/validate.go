package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileSchema compiles schemaMap into a validator.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateProperties validates doc and splits violations by top-level
// property. A violation at the document root is returned as rootErr; property
// violations are returned per key so callers can fail single fields.
func ValidateProperties(schema *jsonschema.Schema, doc any) (propErrs map[string]string, rootErr error) {
	err := schema.Validate(doc)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}

	propErrs = map[string]string{}
	var rootMsgs []string
	for _, leaf := range leaves(ve) {
		key, ok := topLevelKey(leaf.InstanceLocation)
		if !ok {
			rootMsgs = append(rootMsgs, leaf.Message)
			continue
		}
		if _, seen := propErrs[key]; !seen {
			propErrs[key] = leaf.Message
		}
	}
	if len(rootMsgs) > 0 {
		sort.Strings(rootMsgs)
		return propErrs, fmt.Errorf("json does not match schema: %s", strings.Join(rootMsgs, "; "))
	}
	return propErrs, nil
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

// topLevelKey extracts the first segment of a JSON pointer ("/key/..." -> "key").
func topLevelKey(loc string) (string, bool) {
	loc = strings.TrimPrefix(loc, "#")
	if !strings.HasPrefix(loc, "/") {
		return "", false
	}
	seg := strings.TrimPrefix(loc, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	seg = strings.ReplaceAll(seg, "~1", "/")
	seg = strings.ReplaceAll(seg, "~0", "~")
	return seg, true
}
