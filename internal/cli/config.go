package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/deref"
	"github.com/mark3labs/ramlgen/internal/pipeline"
	"github.com/mark3labs/ramlgen/internal/raml"
	"github.com/mark3labs/ramlgen/internal/render"
)

// BuildConfig captures all inputs that influence the build, validate and lint
// commands after merging defaults, config file values, and CLI overrides.
type BuildConfig struct {
	Inputs        []string
	SchemaDir     string
	Out           string
	Format        string
	Policy        string
	Concurrency   int
	URLPattern    string
	DisabledRules []string
	ConfigPath    string
	SkipLint      bool
	SkipValidate  bool
	DryRun        bool
	Lenient       bool
	Verbose       bool
}

func defaultBuildConfig() BuildConfig {
	return BuildConfig{
		Out:         "dist",
		Format:      string(render.FormatRAML),
		Policy:      string(pipeline.PolicyReport),
		Concurrency: deref.DefaultConcurrency,
	}
}

// resolveBuildConfig merges defaults, the --config file and the flags that
// command registered. command prefixes usage errors.
func resolveBuildConfig(cmd *cobra.Command, command string) (*BuildConfig, error) {
	cfg := defaultBuildConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyBuildConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyBuildFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(command); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyBuildFlagOverrides copies every changed flag into cfg. Flags a command
// does not register are never reported as changed.
func applyBuildFlagOverrides(flags *pflag.FlagSet, cfg *BuildConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetStringSlice("input")
		if err != nil {
			return err
		}
		cfg.Inputs = value
	}
	if flags.Changed("schema-dir") {
		value, err := flags.GetString("schema-dir")
		if err != nil {
			return err
		}
		cfg.SchemaDir = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("format") {
		value, err := flags.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = strings.TrimSpace(value)
	}
	if flags.Changed("policy") {
		value, err := flags.GetString("policy")
		if err != nil {
			return err
		}
		cfg.Policy = strings.TrimSpace(value)
	}
	if flags.Changed("concurrency") {
		value, err := flags.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = value
	}
	if flags.Changed("url-pattern") {
		value, err := flags.GetString("url-pattern")
		if err != nil {
			return err
		}
		cfg.URLPattern = strings.TrimSpace(value)
	}
	if flags.Changed("disable") {
		value, err := flags.GetStringSlice("disable")
		if err != nil {
			return err
		}
		cfg.DisabledRules = value
	}
	for name, target := range map[string]*bool{
		"skip-lint":     &cfg.SkipLint,
		"skip-validate": &cfg.SkipValidate,
		"dry-run":       &cfg.DryRun,
		"lenient":       &cfg.Lenient,
		"verbose":       &cfg.Verbose,
	} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*target = value
	}

	return nil
}

func (c *BuildConfig) normalize() {
	c.Inputs = sanitizeList(c.Inputs)
	c.SchemaDir = strings.TrimSpace(c.SchemaDir)
	c.Out = strings.TrimSpace(c.Out)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Policy = strings.ToLower(strings.TrimSpace(c.Policy))
	c.URLPattern = strings.TrimSpace(c.URLPattern)
	c.DisabledRules = sanitizeList(c.DisabledRules)
	if c.Concurrency == 0 {
		c.Concurrency = deref.DefaultConcurrency
	}
}

func (c *BuildConfig) validate(command string) error {
	if len(c.Inputs) == 0 {
		return newUsageError(fmt.Sprintf("%s: --input is required (set via flag or config file)", command))
	}
	if _, err := render.ParseFormat(c.Format); err != nil {
		return newUsageError(fmt.Sprintf("%s: %v", command, err))
	}
	if _, err := pipeline.ParsePolicy(c.Policy); err != nil {
		return newUsageError(fmt.Sprintf("%s: %v", command, err))
	}
	if c.Concurrency < 0 {
		return newUsageError(fmt.Sprintf("%s: --concurrency must be positive, got %d", command, c.Concurrency))
	}
	return nil
}

// pipelineConfig converts the validated settings for the pipeline package.
func (c *BuildConfig) pipelineConfig() pipeline.Config {
	format, _ := render.ParseFormat(c.Format)
	policy, _ := pipeline.ParsePolicy(c.Policy)
	return pipeline.Config{
		SchemaDir:     c.SchemaDir,
		OutDir:        c.Out,
		Format:        format,
		Concurrency:   c.Concurrency,
		Policy:        policy,
		SkipLint:      c.SkipLint,
		SkipValidate:  c.SkipValidate,
		DryRun:        c.DryRun,
		Lenient:       c.Lenient,
		URLPattern:    c.URLPattern,
		DisabledRules: c.DisabledRules,
		Logger:        newLogger(c.Verbose),
	}
}

func applyBuildConfigFromFile(cfg *BuildConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	// Paths in a config file are relative to the file itself.
	base := filepath.Dir(path)
	for key, value := range raw {
		normalized := normalizeKey(key)
		switch normalized {
		case "input", "inputs":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Inputs = make([]string, 0, len(list))
			for _, item := range list {
				cfg.Inputs = append(cfg.Inputs, relativeTo(base, item))
			}
		case "schemadir":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.SchemaDir = relativeTo(base, str)
		case "out":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Out = relativeTo(base, str)
		case "format":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Format = str
		case "policy":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Policy = str
		case "concurrency":
			n, err := valueAsInt(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Concurrency = n
		case "urlpattern":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.URLPattern = str
		case "disable", "disabledrules":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.DisabledRules = list
		case "skiplint", "skipvalidate", "dryrun", "lenient", "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			switch normalized {
			case "skiplint":
				cfg.SkipLint = val
			case "skipvalidate":
				cfg.SkipValidate = val
			case "dryrun":
				cfg.DryRun = val
			case "lenient":
				cfg.Lenient = val
			case "verbose":
				cfg.Verbose = val
			}
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func relativeTo(base, p string) string {
	if p == "" || raml.IsURL(p) || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case nil:
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
