package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/agentpilot/internal/ipc"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected text, json or yaml)", s)
	}
}

// writeStructured writes v as JSON or YAML.
func writeStructured(w io.Writer, v any, format outputFormat) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %s is not structured", format)
	}
}

func writeStatus(w io.Writer, st ipc.Status, format outputFormat) error {
	if format != formatText {
		return writeStructured(w, st, format)
	}

	fmt.Fprintf(w, "Version:    %s\n", st.Version)

	s := st.Session
	if s.IsRunning {
		fmt.Fprintf(w, "Automation: running (mode=%s, session=%d)\n", s.Mode, s.SessionID)
	} else {
		fmt.Fprintln(w, "Automation: stopped")
	}
	if len(s.TabNames) > 0 {
		tabs := make([]string, 0, len(s.TabNames))
		for _, name := range s.TabNames {
			label := name
			if name == s.ActiveTab {
				label = "*" + label
			}
			if s.CompletionStatus[name] {
				label += " ✓"
			}
			tabs = append(tabs, label)
		}
		fmt.Fprintf(w, "Tabs:       %s\n", strings.Join(tabs, ", "))
	}

	q := st.Queue
	fmt.Fprintf(w, "Queue:      %d pending", len(q.Items))
	if q.Current != nil {
		fmt.Fprintf(w, ", sending %s", q.Current.ID)
	}
	if q.Processing {
		fmt.Fprint(w, " (processing)")
	}
	fmt.Fprintln(w)

	sc := st.Scheduler
	if !sc.Enabled {
		fmt.Fprintln(w, "Scheduler:  disabled")
		return nil
	}
	fmt.Fprintf(w, "Scheduler:  every %s, last run %s", sc.Interval, formatTime(sc.LastRunTime))
	if !sc.NextRunTime.IsZero() {
		fmt.Fprintf(w, ", next run %s", formatTime(sc.NextRunTime))
	}
	fmt.Fprintln(w)
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
