package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/chatsweep/pkg/types"
)

// ArtifactWriter handles writing execution artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, config ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		config:    config,
	}
}

// WriteAll writes all configured artifact formats
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) error {
	if !w.config.Enabled {
		return nil
	}

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.config.JSON {
		if err := w.WriteSummaryJSON(summary); err != nil {
			return err
		}
	}

	if w.config.Markdown {
		if err := w.WriteSummaryMarkdown(summary); err != nil {
			return err
		}
	}

	return nil
}

// WriteSummaryJSON writes the full execution summary as JSON
func (w *ArtifactWriter) WriteSummaryJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "summary.json")

	data, err := summary.JSON()
	if err != nil {
		return err
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	if writeErr := os.WriteFile(path, []byte(summary.Markdown()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// ExecutionSummary contains a complete summary of a headless job
type ExecutionSummary struct {
	Action    types.Action      `json:"action"`
	Status    string            `json:"status"`
	DryRun    bool              `json:"dry_run"`
	Error     string            `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Duration  time.Duration     `json:"duration"`
	Planned   []PlannedItem     `json:"planned"`
	Run       *types.RunSummary `json:"run,omitempty"`
	Metrics   ExecutionMetrics  `json:"metrics"`
}

// PlannedItem is one conversation the job selected.
type PlannedItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Project string `json:"project,omitempty"`
}

// ExecutionMetrics contains execution metrics
type ExecutionMetrics struct {
	ChatsLoaded    int `json:"chats_loaded"`
	ProjectsLoaded int `json:"projects_loaded"`
	Planned        int `json:"planned"`
	Processed      int `json:"processed"`
	OK             int `json:"ok"`
	Failed         int `json:"failed"`
	LoadAllRounds  int `json:"load_all_rounds,omitempty"`
}

// JSON returns the indented JSON form of the summary.
func (s *ExecutionSummary) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution summary: %w", err)
	}
	return data, nil
}

// Markdown renders the summary as a report.
func (s *ExecutionSummary) Markdown() string {
	var md strings.Builder

	md.WriteString("# chatsweep Headless Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Action:** %s\n\n", s.Action))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", s.Status))
	if s.DryRun {
		md.WriteString("**Dry run:** nothing was changed\n\n")
	}
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", s.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", s.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", s.Duration))

	md.WriteString("## Result\n\n")
	if s.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", s.Error))
	} else {
		md.WriteString("✅ **Success**\n\n")
	}

	if len(s.Planned) > 0 {
		md.WriteString("## Planned Conversations\n\n")
		for _, p := range s.Planned {
			if p.Project != "" {
				md.WriteString(fmt.Sprintf("- `%s` %s (project: %s)\n", p.ID, p.Title, p.Project))
			} else {
				md.WriteString(fmt.Sprintf("- `%s` %s\n", p.ID, p.Title))
			}
		}
		md.WriteString("\n")
	}

	if s.Run != nil && len(s.Run.Failures) > 0 {
		md.WriteString("## Failures\n\n")
		for _, f := range s.Run.Failures {
			md.WriteString(fmt.Sprintf("- `%s` %s: %s\n", f.ItemID, f.Title, f.Error))
		}
		md.WriteString("\n")
	}

	md.WriteString("## Metrics\n\n")
	md.WriteString(fmt.Sprintf("- **Chats Loaded:** %d\n", s.Metrics.ChatsLoaded))
	md.WriteString(fmt.Sprintf("- **Projects Loaded:** %d\n", s.Metrics.ProjectsLoaded))
	md.WriteString(fmt.Sprintf("- **Planned:** %d\n", s.Metrics.Planned))
	md.WriteString(fmt.Sprintf("- **Processed:** %d\n", s.Metrics.Processed))
	md.WriteString(fmt.Sprintf("- **OK:** %d\n", s.Metrics.OK))
	md.WriteString(fmt.Sprintf("- **Failed:** %d\n", s.Metrics.Failed))
	if s.Metrics.LoadAllRounds > 0 {
		md.WriteString(fmt.Sprintf("- **Load All Rounds:** %d\n", s.Metrics.LoadAllRounds))
	}

	return md.String()
}
