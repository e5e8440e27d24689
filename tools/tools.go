package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
)

// Name identifies a tool. The set is closed: every Name has exactly one
// implementation, checked when the Dispatcher is built.
type Name string

const (
	ReadFile  Name = "read_file"
	ListFiles Name = "list_files"
	EditFile  Name = "edit_file"
)

// Names returns every tool name in declaration order.
func Names() []Name {
	return []Name{ReadFile, ListFiles, EditFile}
}

// ParseName maps a tool name as written by the model to a Name.
func ParseName(s string) (Name, bool) {
	switch n := Name(s); n {
	case ReadFile, ListFiles, EditFile:
		return n, true
	}
	return "", false
}

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() Name
	Description() string
	InputSchema() *jsonschema.Schema
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// GenerateSchema derives the JSON Schema of a tool's argument struct.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Dispatcher maps tool names to their implementations.
type Dispatcher struct {
	tools map[Name]Tool
}

// NewDispatcher returns a dispatcher whose file tools resolve relative paths
// against dir. An empty dir means the process working directory.
func NewDispatcher(dir string) (*Dispatcher, error) {
	fs := fileSystem{dir: dir}
	return newDispatcher(
		&ReadFileTool{fs: fs},
		&ListFilesTool{fs: fs},
		&EditFileTool{fs: fs},
	)
}

func newDispatcher(ts ...Tool) (*Dispatcher, error) {
	d := &Dispatcher{tools: make(map[Name]Tool, len(ts))}
	for _, t := range ts {
		if _, ok := ParseName(string(t.Name())); !ok {
			return nil, errors.New("tool %q is not a known tool name", t.Name())
		}
		if _, dup := d.tools[t.Name()]; dup {
			return nil, errors.New("tool %q registered twice", t.Name())
		}
		d.tools[t.Name()] = t
	}
	for _, n := range Names() {
		if _, ok := d.tools[n]; !ok {
			return nil, errors.New("tool %q has no implementation", n)
		}
	}
	return d, nil
}

// Tools returns the registered tools in declaration order.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.tools))
	for _, n := range Names() {
		out = append(out, d.tools[n])
	}
	return out
}

// Dispatch runs the named tool with raw argument text. Unknown names yield a
// KindUnknownTool error; see decodeArgs for argument failures.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args string) (string, error) {
	n, ok := ParseName(name)
	if !ok {
		return "", errors.E(errors.KindUnknownTool, name, fmt.Errorf("tool %q is not available", name))
	}
	return d.tools[n].Execute(ctx, json.RawMessage(args))
}

// decodeArgs unmarshals raw into v. Text that is not JSON is a
// KindMalformedArguments error; JSON that is not an object, misses a required
// property or has the wrong types is KindInvalidArguments.
func decodeArgs(t Tool, raw json.RawMessage, v any) error {
	op := string(t.Name())
	if !gjson.ValidBytes(raw) {
		return errors.E(errors.KindMalformedArguments, op, fmt.Errorf("arguments are not valid JSON: %s", excerpt(string(raw))))
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return errors.E(errors.KindInvalidArguments, op, fmt.Errorf("arguments must be a JSON object: %s", excerpt(parsed.Raw)))
	}
	if schema := t.InputSchema(); schema != nil {
		for _, field := range schema.Required {
			if !parsed.Get(field).Exists() {
				return errors.E(errors.KindInvalidArguments, op, fmt.Errorf("missing required argument %q", field))
			}
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.E(errors.KindInvalidArguments, op, fmt.Errorf("invalid arguments: %w", err))
	}
	return nil
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
