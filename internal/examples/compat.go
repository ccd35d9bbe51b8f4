package examples

import (
	"sort"
	"strconv"
	"strings"
)

// keywords are the JSON-Schema keywords the OpenAPI schema object carries.
var keywords = map[string]struct{}{
	"type": {}, "format": {}, "title": {}, "description": {}, "enum": {}, "default": {},
	"nullable": {}, "readOnly": {}, "writeOnly": {},
	"allOf": {}, "anyOf": {}, "oneOf": {}, "not": {},
	"properties": {}, "additionalProperties": {}, "required": {},
	"minProperties": {}, "maxProperties": {},
	"items": {}, "minItems": {}, "maxItems": {}, "uniqueItems": {},
	"minimum": {}, "maximum": {}, "exclusiveMinimum": {}, "exclusiveMaximum": {}, "multipleOf": {},
	"minLength": {}, "maxLength": {}, "pattern": {},
}

// annotations carry no assertion and are dropped without notice.
var annotations = map[string]struct{}{
	"$schema": {}, "id": {}, "$id": {}, "$comment": {},
	"definitions": {}, "$defs": {}, "examples": {}, "example": {},
}

// converter rewrites draft-3/draft-4 idioms into the OpenAPI 3.0 schema
// dialect understood by kin-openapi. Unresolved refs and assertions the
// dialect cannot express are recorded so callers can report them.
type converter struct {
	missing   map[string]struct{}
	unchecked map[string]struct{}
}

func newConverter() *converter {
	return &converter{
		missing:   map[string]struct{}{},
		unchecked: map[string]struct{}{},
	}
}

// Missing lists the unresolved $ref targets seen so far, sorted.
func (c *converter) Missing() []string {
	return sortedKeys(c.missing)
}

// Unchecked lists the schema locations of keywords that were dropped during
// conversion and therefore never validated, sorted.
func (c *converter) Unchecked() []string {
	return sortedKeys(c.unchecked)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// anything is the converted form of a schema without assertions. It accepts
// null as well, which OpenAPI 3.0 only allows through nullable.
func anything() map[string]any {
	return map[string]any{"nullable": true}
}

// convert rewrites the schema v found at path. path is a JSON pointer
// prefixed with the location of the schema in the document.
func (c *converter) convert(v any, path string) any {
	m, ok := v.(map[string]any)
	if !ok {
		if b, isBool := v.(bool); isBool && !b {
			// false accepts nothing
			return map[string]any{"not": anything()}
		}
		return anything()
	}
	if ref, ok := m["$ref"].(string); ok {
		c.missing[ref] = struct{}{}
		return anything()
	}
	out := map[string]any{}
	if _, typed := m["type"]; !typed {
		out["nullable"] = true
	}
	var bases, union []any
	for k, val := range m {
		if _, ok := keywords[k]; !ok {
			switch k {
			case "divisibleBy":
				out["multipleOf"] = val
			case "extends":
				bases = append(bases, c.convertList(asList(val), path+"/extends")...)
			case "const":
				bases = append(bases, map[string]any{"enum": []any{val}})
			default:
				if _, skip := annotations[k]; !skip {
					c.unchecked[path+"/"+escape(k)] = struct{}{}
				}
			}
			continue
		}
		switch k {
		case "properties":
			props, ok := val.(map[string]any)
			if !ok {
				continue
			}
			converted := map[string]any{}
			var required []any
			for name, p := range props {
				if pm, ok := p.(map[string]any); ok {
					if req, ok := pm["required"].(bool); ok && req {
						required = append(required, name)
					}
				}
				converted[name] = c.convert(p, path+"/properties/"+escape(name))
			}
			out[k] = converted
			if len(required) > 0 {
				out["required"] = mergeRequired(m["required"], required)
			}
		case "required":
			if _, ok := out["required"]; ok {
				continue
			}
			if list, ok := val.([]any); ok && len(list) > 0 {
				out[k] = list
			}
		case "items":
			if _, isList := val.([]any); isList {
				// tuple validation has no OpenAPI 3.0 equivalent
				c.unchecked[path+"/items"] = struct{}{}
				continue
			}
			out[k] = c.convert(val, path+"/items")
		case "additionalProperties":
			if b, ok := val.(bool); ok {
				out[k] = b
				continue
			}
			out[k] = c.convert(val, path+"/additionalProperties")
		case "not":
			out[k] = c.convert(val, path+"/not")
		case "allOf", "anyOf", "oneOf":
			out[k] = c.convertList(asList(val), path+"/"+k)
		case "type":
			union = c.convertType(val, out, path+"/type")
		case "exclusiveMinimum", "exclusiveMaximum":
			if b, ok := val.(bool); ok {
				out[k] = b
				continue
			}
			bound := "minimum"
			if k == "exclusiveMaximum" {
				bound = "maximum"
			}
			out[bound] = val
			out[k] = true
		case "minimum", "maximum":
			if _, set := out[k]; !set {
				out[k] = val
			}
		default:
			out[k] = val
		}
	}
	if len(union) > 0 {
		if _, ok := out["anyOf"]; ok {
			bases = append(bases, map[string]any{"anyOf": union})
		} else {
			out["anyOf"] = union
		}
	}
	if len(bases) > 0 {
		out["allOf"] = append(asList(out["allOf"]), bases...)
	}
	return out
}

func (c *converter) convertList(list []any, path string) []any {
	out := make([]any, 0, len(list))
	for i, item := range list {
		out = append(out, c.convert(item, path+"/"+strconv.Itoa(i)))
	}
	return out
}

// convertType maps a type keyword onto out and returns the alternatives a
// union of several types needs. "any" allows every value and "null" becomes
// nullable.
func (c *converter) convertType(val any, out map[string]any, path string) []any {
	var (
		types   []string
		members []any
	)
	switch t := val.(type) {
	case string:
		types = []string{t}
	case []any:
		for i, item := range t {
			switch s := item.(type) {
			case string:
				types = append(types, s)
			case map[string]any:
				// draft-3 union member schema
				members = append(members, c.convert(s, path+"/"+strconv.Itoa(i)))
			}
		}
	}
	var kept []string
	for _, t := range types {
		switch strings.ToLower(t) {
		case "any":
			out["nullable"] = true
			return nil
		case "null":
			out["nullable"] = true
		default:
			kept = append(kept, t)
		}
	}
	if len(kept) == 1 && len(members) == 0 {
		out["type"] = kept[0]
		return nil
	}
	if len(kept) == 0 && len(members) == 0 {
		out["nullable"] = true
		return nil
	}
	for _, t := range kept {
		members = append(members, map[string]any{"type": t})
	}
	if nullable, _ := out["nullable"].(bool); nullable {
		members = append(members, map[string]any{"nullable": true, "enum": []any{nil}})
	}
	return members
}

func escape(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func mergeRequired(existing any, names []any) []any {
	seen := map[string]bool{}
	var out []any
	if list, ok := existing.([]any); ok {
		for _, n := range list {
			if s, ok := n.(string); ok && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].(string) < names[j].(string) })
	for _, n := range names {
		if s := n.(string); !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case nil:
		return nil
	default:
		return []any{t}
	}
}
