// internal/config/raw.go
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"regexp"

	"github.com/xeipuuv/gojsonschema"

	"github.com/FairForge/fsource/internal/drivers"
	"github.com/FairForge/fsource/internal/engine"
	"github.com/FairForge/fsource/internal/filter"
)

// optionsSchema covers the JSON shaped keys. filter and fs may hold Go
// values and are checked by hand.
const optionsSchema = `{
	"type": "object",
	"required": ["path"],
	"properties": {
		"path": {"type": "string"},
		"deep": {"type": ["boolean", "integer"], "minimum": 0}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(optionsSchema)

var fieldReasons = map[string]string{
	"path": "Expected a string.",
	"deep": "Expected a boolean or a non-negative integer.",
}

const filterReason = "Expected a boolean, a glob pattern, a list of glob patterns, a regular expression, or a function."

// Parse converts untyped plugin configuration into Options. raw may be a
// map[string]interface{} (as decoded from YAML or JSON), Options or *Options.
func Parse(raw interface{}) (Options, error) {
	switch v := raw.(type) {
	case nil:
		return Options{}, engine.ErrValidation("config", nil, "A value is required.")
	case Options:
		return v, nil
	case *Options:
		if v == nil {
			return Options{}, engine.ErrValidation("config", nil, "A value is required.")
		}
		return *v, nil
	case map[string]interface{}:
		return parseMap(v)
	default:
		return Options{}, engine.ErrValidation("config", raw, "Expected an object.")
	}
}

func parseMap(m map[string]interface{}) (Options, error) {
	doc := make(map[string]interface{}, 2)
	for _, key := range []string{"path", "deep"} {
		if v, ok := m[key]; ok && v != nil {
			doc[key] = v
		}
	}
	if err := validateSchema(doc); err != nil {
		return Options{}, err
	}

	opts := Options{Path: doc["path"].(string)}

	if deep, ok := doc["deep"]; ok {
		depth, err := parseDeep(deep)
		if err != nil {
			return Options{}, err
		}
		opts.Depth = depth
	}

	criteria, err := parseFilter(m["filter"])
	if err != nil {
		return Options{}, err
	}
	opts.Filter = criteria

	if raw, ok := m["fs"]; ok && raw != nil {
		bindings, err := parseBindings(raw)
		if err != nil {
			return Options{}, err
		}
		opts.FS = bindings
	}

	return opts, nil
}

func validateSchema(doc map[string]interface{}) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	field := first.Field()
	if first.Type() == "required" {
		if prop, ok := first.Details()["property"].(string); ok {
			field = prop
		}
		return engine.ErrValidation(field, nil, "A value is required.")
	}

	reason, ok := fieldReasons[field]
	if !ok {
		reason = first.Description()
	}
	return engine.ErrValidation(field, doc[field], reason)
}

// parseDeep maps true to unbounded and false to the top level only
func parseDeep(v interface{}) (*int, error) {
	switch d := v.(type) {
	case bool:
		if d {
			return nil, nil
		}
		return Depth(0), nil
	case int:
		return Depth(d), nil
	case int64:
		return Depth(int(d)), nil
	case uint64:
		return Depth(int(d)), nil
	case float64:
		if d != math.Trunc(d) {
			break
		}
		return Depth(int(d)), nil
	case json.Number:
		n, err := d.Int64()
		if err != nil {
			break
		}
		return Depth(int(n)), nil
	}
	return nil, engine.ErrValidation("deep", v, fieldReasons["deep"])
}

func parseFilter(v interface{}) (filter.Criteria, error) {
	switch f := v.(type) {
	case nil:
		return filter.None(), nil
	case filter.Criteria:
		return f, nil
	case bool:
		return filter.Bool(f), nil
	case string:
		return filter.Glob(f), nil
	case []string:
		return filter.Glob(f...), nil
	case []interface{}:
		patterns := make([]string, 0, len(f))
		for _, item := range f {
			s, ok := item.(string)
			if !ok {
				return filter.Criteria{}, engine.ErrValidation("filter", v, filterReason)
			}
			patterns = append(patterns, s)
		}
		return filter.Glob(patterns...), nil
	case *regexp.Regexp:
		if f == nil {
			break
		}
		return filter.Regexp(f), nil
	case filter.Func:
		return filter.Match(f), nil
	case filter.Predicate:
		return filter.Match(filter.Func(f)), nil
	case func(*engine.File) (bool, error):
		return filter.Match(f), nil
	case func(*engine.File) bool:
		return filter.Match(func(file *engine.File) (bool, error) {
			return f(file), nil
		}), nil
	}
	return filter.Criteria{}, engine.ErrValidation("filter", v, filterReason)
}

// parseBindings accepts drivers.Bindings or a map keyed by stat, lstat,
// readdir and readFile. A present slot must hold a function.
func parseBindings(v interface{}) (drivers.Bindings, error) {
	switch b := v.(type) {
	case drivers.Bindings:
		return b, nil
	case *drivers.Bindings:
		if b != nil {
			return *b, nil
		}
		return drivers.Bindings{}, nil
	case map[string]interface{}:
		return parseBindingsMap(b)
	default:
		return drivers.Bindings{}, engine.ErrValidation("fs", v, "Expected an object.")
	}
}

func parseBindingsMap(m map[string]interface{}) (drivers.Bindings, error) {
	var b drivers.Bindings
	var ok bool

	if v, present := m["stat"]; present {
		if b.Stat, ok = asStatFunc(v); !ok {
			return b, engine.ErrValidation("fs.stat", v, "Expected a function.")
		}
	}
	if v, present := m["lstat"]; present {
		if b.Lstat, ok = asStatFunc(v); !ok {
			return b, engine.ErrValidation("fs.lstat", v, "Expected a function.")
		}
	}
	if v, present := m["readdir"]; present {
		if b.ReadDir, ok = asReadDirFunc(v); !ok {
			return b, engine.ErrValidation("fs.readdir", v, "Expected a function.")
		}
	}
	if v, present := m["readFile"]; present {
		if b.ReadFile, ok = asReadFileFunc(v); !ok {
			return b, engine.ErrValidation("fs.readFile", v, "Expected a function.")
		}
	}
	return b, nil
}

func asStatFunc(v interface{}) (drivers.StatFunc, bool) {
	switch f := v.(type) {
	case drivers.StatFunc:
		return f, f != nil
	case func(context.Context, string) (fs.FileInfo, error):
		return f, f != nil
	}
	return nil, false
}

func asReadDirFunc(v interface{}) (drivers.ReadDirFunc, bool) {
	switch f := v.(type) {
	case drivers.ReadDirFunc:
		return f, f != nil
	case func(context.Context, string) ([]fs.DirEntry, error):
		return f, f != nil
	}
	return nil, false
}

func asReadFileFunc(v interface{}) (drivers.ReadFileFunc, bool) {
	switch f := v.(type) {
	case drivers.ReadFileFunc:
		return f, f != nil
	case func(context.Context, string) ([]byte, error):
		return f, f != nil
	}
	return nil, false
}
