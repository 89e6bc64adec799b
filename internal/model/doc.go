// Package model defines the analysis result data structures and the pure
// functions that turn a result into a renderable report view.
//
// This package contains the following main types:
//   - AnalysisResult: The payload produced by the external analysis backend
//   - Tier: The three-level score classification (excellent/good/needs improvement)
//   - ReportView: The structured view model consumed by report writers
//   - Comparison: The delta between two analyses of the same repository
//
// Nothing in this package performs I/O. Decoding and validation of raw
// backend payloads lives in the schema package; rendering lives in report.
package model
