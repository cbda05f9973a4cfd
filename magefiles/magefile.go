//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "schemagraph"

func Lint() error {
	return sh.RunV("golangci-lint", "run")
}

// Build собирает бинарник в bin/.
func Build() error {
	if err := os.MkdirAll("bin", 0o755); err != nil { //nolint:gomnd // dir mode
		return err
	}
	return sh.RunV("go", "build", "-o", filepath.Join("bin", binary), ".")
}

func Update() error {
	if err := sh.RunV("go", "get", "-u", "-v"); err != nil {
		return err
	}
	return sh.RunV("go", "mod", "tidy", "-v")
}

type Test mg.Namespace

func (Test) All() error {
	return sh.RunV("go", "test", "-v", "./...")
}

func (Test) Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Example строит отчёты по тестовой схеме.
func Example() error {
	mg.Deps(Build)
	bin := filepath.Join("bin", binary)
	input := filepath.Join("testdata", "shop.yaml")
	if err := sh.RunV(bin, "dump", "-i", input, "-o", filepath.Join("bin", "graph.puml")); err != nil {
		return err
	}
	return sh.RunV(bin, "dump", "-i", input, "-o", filepath.Join("bin", "schema.sql"))
}
