package mcp

import (
	"fmt"
	"strings"
)

// FormatFiles renders a file list as markdown.
func FormatFiles(title string, out FilesOutput) string {
	if len(out.Files) == 0 {
		return fmt.Sprintf("No files found for %s", title)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", title)
	if out.Total > len(out.Files) {
		fmt.Fprintf(&sb, "Showing %d of %d files\n\n", len(out.Files), out.Total)
	} else {
		fmt.Fprintf(&sb, "Found %d file%s\n\n", out.Total, plural(out.Total))
	}
	for _, f := range out.Files {
		formatFile(&sb, f)
	}
	return sb.String()
}

// FormatQuery renders query_files output, including tag suggestions.
func FormatQuery(in QueryFilesInput, out QueryFilesOutput) string {
	var sb strings.Builder
	for _, tag := range out.UnknownTags {
		if s := out.Suggestions[tag]; len(s) > 0 {
			fmt.Fprintf(&sb, "No file is tagged %q. Did you mean: %s?\n", tag, strings.Join(s, ", "))
		} else {
			fmt.Fprintf(&sb, "No file is tagged %q.\n", tag)
		}
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(FormatFiles(queryTitle(in), out.FilesOutput))
	return sb.String()
}

// FormatSearch renders search_files results as markdown.
func FormatSearch(query string, out SearchFilesOutput) string {
	if len(out.Results) == 0 {
		return fmt.Sprintf("No results found for %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for %q\n\n", query)
	fmt.Fprintf(&sb, "Found %d result%s\n\n", len(out.Results), plural(len(out.Results)))
	for _, r := range out.Results {
		formatFile(&sb, r.File)
		if len(r.MatchedTerms) > 0 {
			fmt.Fprintf(&sb, "  matched: %s (score %.2f)\n", strings.Join(r.MatchedTerms, ", "), r.Score)
		}
	}
	return sb.String()
}

func formatFile(sb *strings.Builder, f FileOutput) {
	fmt.Fprintf(sb, "- **%s** `%s` id=%s", f.Name, f.Type, f.ID)
	if len(f.Tags) > 0 {
		fmt.Fprintf(sb, " tags: %s", strings.Join(f.Tags, "/"))
	}
	sb.WriteString("\n")
}

func queryTitle(in QueryFilesInput) string {
	var parts []string
	if in.Type != "" {
		parts = append(parts, "type "+in.Type)
	}
	if len(in.Tags) > 0 {
		parts = append(parts, "tags "+strings.Join(in.Tags, ", "))
	}
	if len(parts) == 0 {
		return "all files"
	}
	return strings.Join(parts, " and ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
