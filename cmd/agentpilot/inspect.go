package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/poll"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/snapshot"
	"github.com/aatumaykin/agentpilot/internal/variant"
)

var (
	inspectIDE    string
	inspectOutput string
)

// inspectCmd runs the classifier over a saved panel HTML dump
var inspectCmd = &cobra.Command{
	Use:   "inspect <panel.html>",
	Short: "Dry-run the classifier against a saved panel snapshot",
	Long: `Parse a saved HTML dump of the agent panel with the IDE profile selectors and
report which controls would be clicked and which tab is active. Nothing is
sent to the IDE.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(inspectOutput)
		if err != nil {
			return err
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		ide := inspectIDE
		if ide == "" {
			ide = cfg.Automation.IDE
		}
		profile, err := variant.Lookup(ide)
		if err != nil {
			return err
		}
		cls, err := classifier.New(cfg.Classifier, logger.Nop())
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		report, err := inspect(cmd.Context(), f, profile, cls)
		if err != nil {
			return err
		}
		if format != formatText {
			return writeStructured(cmd.OutOrStdout(), report, format)
		}
		return writeReport(cmd.OutOrStdout(), report)
	},
}

type inspectedControl struct {
	Ref       string `json:"ref" yaml:"ref"`
	Text      string `json:"text" yaml:"text"`
	Visible   bool   `json:"visible" yaml:"visible"`
	Clickable bool   `json:"clickable" yaml:"clickable"`
	Accept    bool   `json:"accept" yaml:"accept"`
}

type inspectReport struct {
	IDE                string             `json:"ide" yaml:"ide"`
	Busy               bool               `json:"busy" yaml:"busy"`
	HasNewConversation bool               `json:"has_new_conversation" yaml:"has_new_conversation"`
	Controls           []inspectedControl `json:"controls" yaml:"controls"`
	Clicked            []string           `json:"clicked" yaml:"clicked"`
	Tabs               []remote.Tab       `json:"tabs" yaml:"tabs"`
	ActiveTab          string             `json:"active_tab,omitempty" yaml:"active_tab,omitempty"`
}

// inspect parses the snapshot and clicks every accepted control on an
// offline surface, the way the poll loops would.
func inspect(ctx context.Context, r io.Reader, profile variant.Profile, cls *classifier.Classifier) (*inspectReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	doc, err := snapshot.Parse(r, profile)
	if err != nil {
		return nil, err
	}
	surface := snapshot.NewSurface(doc)

	ctrls, err := surface.Controls(ctx)
	if err != nil {
		return nil, err
	}
	report := &inspectReport{
		IDE:                profile.Name,
		Busy:               doc.Busy,
		HasNewConversation: doc.HasNewConversation,
		Clicked:            []string{},
	}
	for _, c := range ctrls {
		accept := cls.Accepts(c)
		report.Controls = append(report.Controls, inspectedControl{
			Ref:       c.Ref,
			Text:      c.Text,
			Visible:   c.Visible(),
			Clickable: c.Clickable(),
			Accept:    accept,
		})
		if accept {
			if err := surface.Click(ctx, c.Ref); err != nil {
				return nil, err
			}
		}
	}
	report.Clicked = append(report.Clicked, surface.Clicks()...)

	tabs, err := surface.Tabs(ctx)
	if err != nil {
		return nil, err
	}
	report.Tabs = tabs
	if i := poll.ActiveTab(tabs); i >= 0 {
		report.ActiveTab = tabs[i].Name
	}
	return report, nil
}

func writeReport(w io.Writer, r *inspectReport) error {
	fmt.Fprintf(w, "IDE: %s  busy: %v  new conversation control: %v\n\n", r.IDE, r.Busy, r.HasNewConversation)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tTEXT\tVISIBLE\tCLICKABLE\tACTION")
	for _, c := range r.Controls {
		action := "-"
		if c.Accept {
			action = "click"
		}
		fmt.Fprintf(tw, "%s\t%q\t%v\t%v\t%s\n", c.Ref, c.Text, c.Visible, c.Clickable, action)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Tabs) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for _, t := range r.Tabs {
		marker := " "
		if t.Name == r.ActiveTab {
			marker = "*"
		}
		done := ""
		if t.Completed {
			done = " ✓"
		}
		fmt.Fprintf(w, "%s %s%s\n", marker, t.Name, done)
	}
	return nil
}

func init() {
	inspectCmd.Flags().StringVar(&inspectIDE, "ide", "", "IDE profile (default from config)")
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "text", "Output format: text, json or yaml")
}
