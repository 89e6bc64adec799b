// Package session runs one analysis at a time and tracks its lifecycle.
//
// A Session moves through four states:
//
//	idle ──submit──▶ loading ──resolve──▶ succeeded
//	                    │
//	                    └──reject──▶ failed
//
// succeeded and failed accept submit again. Each request ends in exactly
// one transition. A submit while another request is loading is rejected
// with ErrRequestInFlight and leaves the session untouched.
package session
