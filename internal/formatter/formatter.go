// package formatter provides functions to export library entries to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/averymorin/tunelist/internal/models"
	"github.com/averymorin/tunelist/internal/shared"
)

// ExportToCSV converts library entries to CSV format with columns: ID, Name, Slug, Owner, OwnerID, AddedAt
func ExportToCSV(entries []models.EnrichedEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Slug", "Owner", "OwnerID", "AddedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.Row.EntityID(),
			entry.EntityName,
			entry.EntitySlug,
			entry.OwnerUsername,
			entry.Row.OwnerID(),
			entry.Row.AddedAt(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts library entries to Markdown format
func ExportToMarkdown(domain string, entries []models.EnrichedEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s library\n\n", domain))
	buf.WriteString(fmt.Sprintf("**Entries**: %d\n", len(entries)))
	buf.WriteString(fmt.Sprintf("**Exported**: %s\n\n", time.Now().Format(time.RFC3339)))

	buf.WriteString("## Entries\n\n")
	for i, entry := range entries {
		name := entry.EntityName
		if name == "" {
			name = entry.Row.EntityID()
		}
		ownerPart := ""
		if entry.OwnerUsername != "" {
			ownerPart = fmt.Sprintf(" by %s", entry.OwnerUsername)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, name, ownerPart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts library entries to plain text format
func ExportToText(domain string, entries []models.EnrichedEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Library: %s\n", domain))
	buf.WriteString(fmt.Sprintf("Entries: %d\n\n", len(entries)))

	for i, entry := range entries {
		name := entry.EntityName
		if name == "" {
			name = entry.Row.EntityID()
		}
		if entry.OwnerUsername != "" {
			buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, entry.OwnerUsername, name))
		} else {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, name))
		}
	}

	return buf.Bytes(), nil
}

// ToEntriesJSON generates an indented JSON representation of library entries
func ToEntriesJSON(entries []models.EnrichedEntry) ([]byte, error) {
	type entryJSON struct {
		EntityID string `json:"entity_id"`
		Name     string `json:"name,omitempty"`
		Slug     string `json:"slug,omitempty"`
		Owner    string `json:"owner,omitempty"`
		OwnerID  string `json:"owner_id"`
		AddedAt  string `json:"added_at,omitempty"`
	}

	out := make([]entryJSON, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryJSON{
			EntityID: entry.Row.EntityID(),
			Name:     entry.EntityName,
			Slug:     entry.EntitySlug,
			Owner:    entry.OwnerUsername,
			OwnerID:  entry.Row.OwnerID(),
			AddedAt:  entry.Row.AddedAt(),
		})
	}

	return shared.MarshalJSON(out, true)
}

// WriteCSVExport exports library entries to a CSV file.
//
// Defaults to {domain}_library.csv as the filename.
func WriteCSVExport(domain string, entries []models.EnrichedEntry, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_library.csv", domain)
	}

	csvData, err := ExportToCSV(entries)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

// WriteMarkdownExport exports library entries to a Markdown file.
//
// Defaults to {domain}_library.md as the filename.
func WriteMarkdownExport(domain string, entries []models.EnrichedEntry, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_library.md", domain)
	}

	mdData, err := ExportToMarkdown(domain, entries)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}
