package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
)

// Format is a task history export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates an export format name. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (use csv or markdown)", shared.ErrInvalidFlag, s)
	}
}

// ExportHistory renders records in the given format.
func ExportHistory(records []*models.TaskRecord, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportHistoryCSV(records)
	case FormatMarkdown:
		return ExportHistoryMarkdown(records)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, f)
	}
}

// ExportHistoryCSV converts task records to CSV with columns: Task ID, Title, State, Last Status, Message, Polls, Created, Finished
func ExportHistoryCSV(records []*models.TaskRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Task ID", "Title", "State", "Last Status", "Message", "Polls", "Created", "Finished"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.TaskID(),
			r.Title(),
			string(r.State()),
			r.LastStatus(),
			r.Message(),
			strconv.Itoa(r.Polls()),
			r.CreatedAt().Format(time.RFC3339),
			formatOptionalTime(r.FinishedAt()),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportHistoryMarkdown converts task records to a Markdown table.
func ExportHistoryMarkdown(records []*models.TaskRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Task history\n\n")
	buf.WriteString(fmt.Sprintf("**Tasks**: %d\n\n", len(records)))

	if len(records) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Title | State | Last Status | Polls | Created | Message |\n")
	buf.WriteString("|---|-------|-------|-------------|-------|---------|---------|\n")
	for _, r := range records {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d | %s | %s |\n",
			r.Sequence(),
			markdownCell(r.Title()),
			r.State(),
			markdownCell(r.LastStatus()),
			r.Polls(),
			r.CreatedAt().Format("2006-01-02 15:04"),
			markdownCell(r.Message()),
		))
	}

	return buf.Bytes(), nil
}

func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
