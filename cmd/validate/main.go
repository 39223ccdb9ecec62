package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/yags-engine/pkg/eventlog"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <events.jsonl> [more.jsonl ...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		if err := validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	fmt.Println("Event log is valid!")
}

func validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".jsonl") {
		return fmt.Errorf("event log must have .jsonl extension: %s", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	errs := eventlog.NewValidator().ValidateJSONL(data)
	if len(errs) > 0 {
		formatted := make([]string, 0, len(errs))
		for _, e := range errs {
			formatted = append(formatted, "  - "+e)
		}
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(formatted, "\n"))
	}

	return nil
}
