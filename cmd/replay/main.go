package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/yags-engine/pkg/eventlog"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <events.jsonl>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	events, skipped, err := loadEvents(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load event log: %v\n", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Fprintf(os.Stderr, "No events found in %s\n", filename)
		os.Exit(1)
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "Warning: skipped %d unparseable lines\n", skipped)
	}

	p := tea.NewProgram(NewReplayUI(filename, events), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Replay error: %v\n", err)
		os.Exit(1)
	}
}

// loadEvents parses a JSONL event log, skipping unparseable lines.
func loadEvents(filename string) ([]eventlog.Event, int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, 0, err
	}

	var events []eventlog.Event
	skipped := 0

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event eventlog.Event
		if err := json.Unmarshal(line, &event); err != nil {
			skipped++
			continue
		}
		events = append(events, event)
	}

	return events, skipped, scanner.Err()
}
