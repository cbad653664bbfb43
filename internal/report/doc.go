// Package report writes finished runs.
//
// Writers:
//   - MarkdownWriter: the report text as generated, optionally followed by a
//     run details appendix
//   - JSONWriter: the full run record
//   - TerminalWriter: the report rendered for an ANSI terminal
//
// Export writes the plain markdown report to a file named
// insect_pest_control_report.md, the download name used by every surface.
package report
