// Package server provides the HTTP render service.
//
// The service turns analysis payloads into reports without calling the
// analysis backend:
//
//	GET  /api/v1/health
//	POST /api/v1/reports/render?format=text|markdown|json
//
// The render endpoint accepts the same bare or wrapped payloads as the
// render command. Every response carries an X-Request-Id header.
package server
