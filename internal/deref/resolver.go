package deref

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-openapi/jsonpointer"

	"github.com/mark3labs/ramlgen/internal/raml"
)

// scope is the document a $ref is resolved in: its folder, its identity for
// cycle detection and its decoded content.
type scope struct {
	base string
	id   string
	root any
}

// resolver loads external schema documents once per Dereference call.
type resolver struct {
	storage *raml.Storage

	mu    sync.Mutex
	cache map[string]any
}

func (r *resolver) resolve(ctx context.Context, node any, sc scope, stack []string) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			return r.resolveRef(ctx, ref, sc, stack)
		}
		out := make(map[string]any, len(v))
		for k, child := range v {
			resolved, err := r.resolve(ctx, child, sc, stack)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			resolved, err := r.resolve(ctx, child, sc, stack)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return node, nil
	}
}

// resolveRef replaces a $ref object with its target. Sibling keys of $ref are
// dropped.
func (r *resolver) resolveRef(ctx context.Context, ref string, sc scope, stack []string) (any, error) {
	location, fragment, _ := strings.Cut(ref, "#")
	target := sc
	if location != "" {
		full := raml.JoinLocation(sc.base, location)
		doc, err := r.load(ctx, full)
		if err != nil {
			return nil, err
		}
		target = scope{base: raml.ParentLocation(full), id: full, root: doc}
	}

	key := target.id + "#" + fragment
	for _, seen := range stack {
		if seen == key {
			return nil, fmt.Errorf("circular $ref %q", ref)
		}
	}

	value := target.root
	if fragment != "" && fragment != "/" {
		ptr, err := jsonpointer.New(fragment)
		if err != nil {
			return nil, fmt.Errorf("invalid $ref %q: %w", ref, err)
		}
		if value, _, err = ptr.Get(target.root); err != nil {
			return nil, fmt.Errorf("$ref %q not found: %w", ref, err)
		}
	}
	return r.resolve(ctx, value, target, append(stack[:len(stack):len(stack)], key))
}

func (r *resolver) load(ctx context.Context, location string) (any, error) {
	r.mu.Lock()
	if doc, ok := r.cache[location]; ok {
		r.mu.Unlock()
		return doc, nil
	}
	r.mu.Unlock()

	data, err := r.storage.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	doc, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[location]; ok {
		return cached, nil
	}
	r.cache[location] = doc
	return doc, nil
}
