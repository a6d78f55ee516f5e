package doctools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Compiled parameter schemas, one per tool. Tool-call arguments from the
// model are validated before dispatch so malformed calls become tool
// validation errors instead of panics deeper in the engine.
var argSchemas = map[ToolName]*jsonschema.Schema{
	ToolAnalyze: mustCompileSchema(ToolAnalyze, analyzeTool().Function.Parameters),
	ToolSearch:  mustCompileSchema(ToolSearch, searchTool().Function.Parameters),
	ToolRead:    mustCompileSchema(ToolRead, readTool().Function.Parameters),
	ToolEdit:    mustCompileSchema(ToolEdit, editTool().Function.Parameters),
}

func mustCompileSchema(name ToolName, raw json.RawMessage) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	url := string(name) + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(url)
}

// decodeArgs parses raw tool-call arguments and validates them against the
// tool's parameter schema. An empty argument string means no arguments.
func decodeArgs(name ToolName, rawArgs string) (map[string]any, error) {
	if rawArgs == "" {
		rawArgs = "{}"
	}

	var decoded any
	if err := json.Unmarshal([]byte(rawArgs), &decoded); err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}

	if err := argSchemas[name].Validate(decoded); err != nil {
		return nil, err
	}

	args, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object")
	}
	return args, nil
}
