// Package config provides configuration structures and utilities for
// codewatcher. It defines how the analysis backend is reached, how reports
// are rendered, where analysis history is stored, and where the render
// service listens.
package config
