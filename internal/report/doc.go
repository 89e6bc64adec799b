// Package report renders analysis reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: GitHub-flavored Markdown for pull request comments and docs
//   - JSONWriter: Structured JSON output for tool integration
//
// Writers consume a Report, which pairs the structured view built by
// model.BuildView with the repository metadata. Writers implement the
// Writer interface, allowing them to be used interchangeably and composed
// with MultiWriter.
package report
