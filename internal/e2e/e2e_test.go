package e2e

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	cli "github.com/mark3labs/ramlgen/internal/cli"
)

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		list = append(list, rel)
		// hash path + contents to be robust
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(list)
	return list, hex.EncodeToString(h.Sum(nil))
}

// scaffoldAndBuild creates a starter project and builds it with the
// ramlgen.yaml the scaffold wrote.
func scaffoldAndBuild(t *testing.T, format string) string {
	t.Helper()
	project := filepath.Join(t.TempDir(), "pets")
	runCLI(t, "scaffold", "--out", project, "--title", "Pet Store", "--author-name", "Jo Doe", "--license", "MIT")
	runCLI(t, "--config", filepath.Join(project, "ramlgen.yaml"), "build", "--format", format)
	return project
}

func TestE2E_ScaffoldBuild_Deterministic(t *testing.T) {
	dir1 := scaffoldAndBuild(t, "raml")
	dir2 := scaffoldAndBuild(t, "raml")

	files1, sum1 := digestDir(t, filepath.Join(dir1, "dist"))
	files2, sum2 := digestDir(t, filepath.Join(dir2, "dist"))
	if !slicesEqual(files1, files2) || sum1 != sum2 {
		t.Fatalf("build outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
	}
	if !slicesEqual(files1, []string{"api.raml"}) {
		t.Fatalf("unexpected dist contents: %v", files1)
	}

	data, err := os.ReadFile(filepath.Join(dir1, "dist", "api.raml"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "#%RAML 0.8\n---\n") {
		t.Fatalf("missing header:\n%s", s)
	}
	for _, unwanted := range []string{"$ref", "!include", "relativeUri", "common.json"} {
		if strings.Contains(s, unwanted) {
			t.Fatalf("output still contains %q:\n%s", unwanted, s)
		}
	}
	// the identifier definition from common.json is inlined
	if !strings.Contains(s, "^[a-z0-9-]+$") {
		t.Fatalf("referenced schema not inlined:\n%s", s)
	}
	// folded scalars never survive the fixer
	for _, line := range strings.Split(s, "\n") {
		if strings.HasSuffix(strings.TrimRight(line, " "), ": >") || strings.HasSuffix(line, ": >-") {
			t.Fatalf("folded scalar left in output: %q", line)
		}
	}

	// formatting hooks present in the scaffold
	mustExist(t, filepath.Join(dir1, ".editorconfig"))
	mustExist(t, filepath.Join(dir1, "LICENSE"))
}

func TestE2E_ScaffoldBuild_JSON(t *testing.T) {
	dir := scaffoldAndBuild(t, "json")
	data, err := os.ReadFile(filepath.Join(dir, "dist", "api.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "{\n  \"title\": \"Pet Store\"") {
		t.Fatalf("unexpected json output:\n%s", s)
	}
	if !strings.Contains(s, "\"/pet-store\"") {
		t.Fatalf("resource key missing:\n%s", s)
	}
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %s: %v", path, err)
	}
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
