package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

const defaultConfigName = "ramlgen.yaml"

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample ramlgen configuration file",
		Long:  "Write a commented ramlgen configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			})
		},
	}

	cmd.Flags().String("out", defaultConfigName, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigName
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force && st.Mode().IsRegular() {
		return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML documents every key build, validate and lint accept.
const sampleConfigYAML = `# ramlgen configuration (YAML)
# All fields are optional. Command-line flags override config values.
# Relative paths are resolved against the directory of this file.

# RAML files, globs or URLs to process (comma-separated or list).
# input: [api.raml]

# Directory that $ref targets and schema file names resolve against.
# Defaults to the directory of each document.
# schemaDir: schema

# Output directory for build artifacts.
# out: dist

# Output format (raml|json|yaml).
# format: raml

# What to do with error findings:
#   report            print them and succeed
#   fail-on-error     fail each document that has them
#   fail-after-error  process every document, then fail once
# policy: report

# Maximum documents and schemas processed at once.
# concurrency: 4

# Regular expression every resource URI must match (lint rule url_lower).
# urlPattern: '^\/([a-z]+(-[a-z]+)*|{[a-z]+([A-Z][a-z]+)*})$'

# Lint rule IDs to skip.
# disable: [resource_desc, method_desc]

# Skip the lint or example validation stages of build.
# skipLint: false
# skipValidate: false

# Accept input without the #%RAML 0.8 header.
# lenient: false

# Preview planned outputs without writing files.
# dryRun: false

# Enable verbose logging.
# verbose: false
`
