package review

import (
	"fmt"
	"strings"
)

// ReportFileName is written to the project root after a review.
const ReportFileName = "code_review_report.md"

// GenerateReport renders a Markdown report for a directory review.
func GenerateReport(result DirectoryReview) string {
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return "Review failed: " + msg
	}

	var b strings.Builder
	b.WriteString("# Code Review Report\n\n")
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Directory: %s\n", result.DirectoryPath)
	fmt.Fprintf(&b, "- Files reviewed: %d\n", result.FilesReviewed)
	fmt.Fprintf(&b, "- Files with issues: %d\n", result.FilesWithIssues)
	if result.FilesFixed > 0 {
		fmt.Fprintf(&b, "- **Files automatically fixed:** %d\n", result.FilesFixed)
	}
	b.WriteString("\n## File Reviews\n\n")

	for _, review := range result.Reviews {
		writeFileReview(&b, review)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeFileReview(b *strings.Builder, review FileReview) {
	fmt.Fprintf(b, "### %s\n\n", review.FilePath)
	count := len(review.Analysis.Issues)

	if review.Fixed {
		fmt.Fprintf(b, "**✅ Issues fixed:** %d\n\n", count)
		b.WriteString("The following issues were automatically fixed:\n\n")
		for _, c := range review.Changes {
			fmt.Fprintf(b, "- Fixed %d issues in %s\n", c.IssuesFixed, c.File)
			fmt.Fprintf(b, "  (Original backed up to %s)\n", c.Backup)
		}
		b.WriteString("\n")
	}

	switch {
	case review.HasIssues():
		label := "Issues found"
		if review.Fixed {
			label = "Original issues found"
		}
		fmt.Fprintf(b, "**%s:** %d\n\n", label, count)
		for i, issue := range review.Analysis.Issues {
			line := string(issue.Line)
			if line == "" {
				line = "unknown"
			}
			fmt.Fprintf(b, "**Issue %d:** %s at line %s\n", i+1, strings.ToUpper(orDefault(issue.Severity, "unknown")), line)
			fmt.Fprintf(b, "- Description: %s\n", orDefault(issue.Description, "No description"))
			fmt.Fprintf(b, "- Suggestion: %s\n\n", orDefault(issue.Suggestion, "No suggestion"))
		}
	case review.Analysis.Raw != "":
		fmt.Fprintf(b, "```\n%s\n```\n", review.Analysis.Raw)
	case review.Analysis.Failed():
		fmt.Fprintf(b, "Analysis failed: %s\n", review.Analysis.Error)
	default:
		b.WriteString("No issues found.\n")
	}
	b.WriteString("\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
