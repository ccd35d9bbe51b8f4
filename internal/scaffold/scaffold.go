// Package scaffold writes a starter RAML API project: the API description,
// a schema library with an example, and the build configuration.
package scaffold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"
)

// Options controls the generated project.
type Options struct {
	OutDir      string // required; target directory
	Title       string // API title; derived from OutDir when empty
	Description string
	Version     string // semantic version, e.g. 0.1.0
	BaseURI     string
	AuthorName  string
	AuthorEmail string
	License     string
	Force       bool // write into a non-empty directory
	DryRun      bool // plan only
}

// PlannedFile describes a file the scaffolder intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the resolved project names.
type Result struct {
	Title    string
	Resource string
	Schema   string
	Planned  []PlannedFile
}

const (
	DefaultVersion = "0.1.0"
	DefaultLicense = "Apache-2.0"
	DefaultBaseURI = "https://api.example.com/{version}"
)

var semver = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

type templateData struct {
	Title       string
	Description string
	Version     string
	BaseURI     string
	AuthorName  string
	AuthorEmail string
	License     string
	Year        int
	Resource    string // slug, e.g. widget-warehouse
	Param       string // URI parameter, e.g. widgetWarehouseId
	Schema      string // schema library entry, e.g. WidgetWarehouse
}

// Emit renders the project into opts.OutDir.
func Emit(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("scaffold: OutDir is required")
	}
	data, err := newTemplateData(opts)
	if err != nil {
		return nil, err
	}

	files := map[string][]byte{}
	for rel, tmpl := range projectTemplates(data) {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("scaffold: render %s: %w", rel, err)
		}
		files[rel] = buf.Bytes()
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &Result{Title: data.Title, Resource: data.Resource, Schema: data.Schema, Planned: planned}, nil
}

func newTemplateData(opts Options) (templateData, error) {
	title := NormalizeTitle(opts.Title)
	if title == "" {
		abs, err := filepath.Abs(opts.OutDir)
		if err != nil {
			return templateData{}, fmt.Errorf("scaffold: resolve out dir: %w", err)
		}
		title = Titleize(strings.NewReplacer("-", " ", "_", " ").Replace(filepath.Base(abs)))
	}
	resource := Slug(title)
	if resource == "" {
		resource = "items"
	}
	version := NormalizeVersion(opts.Version)
	if version == "" {
		version = DefaultVersion
	}
	if !semver.MatchString(version) {
		return templateData{}, fmt.Errorf("scaffold: version %q is not a semantic version (e.g. 0.1.0)", opts.Version)
	}
	baseURI := NormalizeURI(opts.BaseURI)
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}
	license := strings.TrimSpace(opts.License)
	if license == "" {
		license = DefaultLicense
	}
	description := strings.TrimSpace(opts.Description)
	if description == "" {
		description = title + " RAML API description and Schema validations."
	}
	return templateData{
		Title:       title,
		Description: description,
		Version:     version,
		BaseURI:     baseURI,
		AuthorName:  strings.TrimSpace(opts.AuthorName),
		AuthorEmail: strings.TrimSpace(opts.AuthorEmail),
		License:     license,
		Year:        time.Now().Year(),
		Resource:    resource,
		Param:       Camelize(resource) + "Id",
		Schema:      Classify(resource),
	}, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("scaffold: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

var funcs = template.FuncMap{
	// quote renders s as a double-quoted scalar, valid in both YAML and JSON.
	"quote": func(s string) (string, error) {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(s); err != nil {
			return "", err
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	},
}

func parse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}

func projectTemplates(data templateData) map[string]*template.Template {
	files := map[string]*template.Template{
		"api.raml":           parse("api.raml", apiRAML),
		"schema/common.json": parse("common", commonSchema),
		"README.md":          parse("readme", readme),
		"LICENSE":            parse("license", licenseText),
		".gitignore":         parse("gitignore", gitignore),
		".editorconfig":      parse("editorconfig", editorconfig),
		"ramlgen.yaml":       parse("config", buildConfig),
	}
	files["schema/"+data.Resource+".json"] = parse("schema", resourceSchema)
	files["examples/"+data.Resource+".json"] = parse("example", resourceExample)
	return files
}
