package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/ramlgen/internal/scaffold"
)

// ScaffoldConfig captures the options for the scaffold command.
type ScaffoldConfig struct {
	Out         string
	Title       string
	Description string
	Version     string
	BaseURI     string
	AuthorName  string
	AuthorEmail string
	License     string
	Force       bool
	DryRun      bool
	Verbose     bool
}

var scaffoldRunner = runScaffold

func newScaffoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Create a starter RAML 0.8 API project",
		Long: "Create a starter project with an API description, a JSON schema, a matching example " +
			"and a ramlgen.yaml that builds it.",
		Example: strings.TrimSpace(`  ramlgen scaffold --out ./pets --title "Pet Store"
  ramlgen scaffold --out ./pets --license MIT --author-name "Jo Doe" --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg := &ScaffoldConfig{}
			for name, target := range map[string]*string{
				"out":          &cfg.Out,
				"title":        &cfg.Title,
				"description":  &cfg.Description,
				"version":      &cfg.Version,
				"base-uri":     &cfg.BaseURI,
				"author-name":  &cfg.AuthorName,
				"author-email": &cfg.AuthorEmail,
				"license":      &cfg.License,
			} {
				value, err := flags.GetString(name)
				if err != nil {
					return err
				}
				*target = strings.TrimSpace(value)
			}
			for name, target := range map[string]*bool{
				"force":   &cfg.Force,
				"dry-run": &cfg.DryRun,
				"verbose": &cfg.Verbose,
			} {
				value, err := flags.GetBool(name)
				if err != nil {
					return err
				}
				*target = value
			}
			if cfg.Out == "" {
				return newUsageError("scaffold: --out is required")
			}
			return scaffoldRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("out", "", "Directory to create the project in")
	flags.String("title", "", "API title; derived from the output directory when omitted")
	flags.String("description", "", "API description")
	flags.String("version", "", "Semantic version of the API; defaults to "+scaffold.DefaultVersion)
	flags.String("base-uri", "", "Base URI; defaults to "+scaffold.DefaultBaseURI)
	flags.String("author-name", "", "Author named in README and LICENSE")
	flags.String("author-email", "", "Author email")
	flags.String("license", "", "License (MIT|Apache-2.0); defaults to "+scaffold.DefaultLicense)
	flags.Bool("force", false, "Write into a non-empty directory")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")

	return cmd
}

func runScaffold(ctx context.Context, cfg *ScaffoldConfig) error {
	absOut := absPath(cfg.Out)
	res, err := scaffold.Emit(ctx, scaffold.Options{
		OutDir:      cfg.Out,
		Title:       cfg.Title,
		Description: cfg.Description,
		Version:     cfg.Version,
		BaseURI:     cfg.BaseURI,
		AuthorName:  cfg.AuthorName,
		AuthorEmail: cfg.AuthorEmail,
		License:     cfg.License,
		Force:       cfg.Force,
		DryRun:      cfg.DryRun,
	})
	if err != nil {
		if strings.Contains(err.Error(), "semantic version") {
			return newUsageError(err.Error())
		}
		return wrapOutputError(err, absOut)
	}
	if cfg.DryRun {
		paths := make([]string, 0, len(res.Planned))
		for _, p := range res.Planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(absOut, paths)
		return nil
	}
	fmt.Fprintf(os.Stdout, "Scaffolded %q in %s (%d files)\n", res.Title, absOut, len(res.Planned))
	return nil
}
