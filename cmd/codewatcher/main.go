// Package main provides the entry point for the CodeWatcher CLI.
//
// CodeWatcher requests code analyses from a CodeWatcher backend and renders
// the results as text, Markdown, or JSON reports. Past analyses are kept in
// a local history database for comparison.
//
// Usage:
//
//	codewatcher analyze <repository-url>
//	codewatcher render result.json
//	codewatcher history <repository-url>
//
// See --help for all available options.
package main

// main is the entry point for CodeWatcher.
func main() {
	Execute()
}
