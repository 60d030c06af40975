// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build mage

// Package main contains Mage build targets for donor-match developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories a local setup expects.
var projectDirs = []string{
	"data",
	"fixtures/academic",
	"fixtures/geographic",
	".secrets",
}

// exampleSources is written by Init when no registry file exists.
const exampleSources = `sources:
  - id: academic
    kind: sqlite
    path: data/academic.db
    capabilities:
      major: [equals, contains]
      gpa: [range]
  - id: geographic
    kind: badger
    path: data/geographic
    capabilities:
      city: [equals, contains]
      location: [near]
`

// Init creates the local directory layout and an example sources.yaml.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("sources.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("sources.yaml", []byte(exampleSources), 0o644); err != nil {
			return fmt.Errorf("writing sources.yaml: %w", err)
		}
		fmt.Println("   sources.yaml")
	}
	fmt.Println("Project initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "donor-match"
	cmdPkg  = "./cmd/donor-match"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Seed loads fixtures/<source>/**/*.yaml into each storage-backed source
// created by Init.
func Seed() error {
	mg.Deps(Build, Init)
	bin := filepath.Join(binDir, binName)
	for _, source := range []string{"academic", "geographic"} {
		pattern := filepath.Join("fixtures", source, "**", "*.yaml")
		if err := sh.RunV(bin, "seed", "--source", source, "--fixtures", pattern); err != nil {
			return fmt.Errorf("seeding %s: %w", source, err)
		}
	}
	return nil
}

// Stats prints non-blank Go lines per package, split into production and
// test code.
func Stats() error {
	type counts struct{ prod, test int }
	perPkg := map[string]*counts{}
	var order []string

	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "bin") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := nonBlankLines(path)
		if err != nil {
			return err
		}
		pkg := filepath.Dir(path)
		c, ok := perPkg[pkg]
		if !ok {
			c = &counts{}
			perPkg[pkg] = c
			order = append(order, pkg)
		}
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(order)
	var total counts
	fmt.Printf("%-32s  %8s  %8s\n", "Package", "Prod", "Test")
	for _, pkg := range order {
		c := perPkg[pkg]
		total.prod += c.prod
		total.test += c.test
		fmt.Printf("%-32s  %8d  %8d\n", pkg, c.prod, c.test)
	}
	fmt.Printf("%-32s  %8d  %8d\n", "total", total.prod, total.test)
	return nil
}

func nonBlankLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n, nil
}
