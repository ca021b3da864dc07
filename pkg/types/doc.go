// Package types defines the JSON request and response bodies of the
// sirius-server REST API. The server and any Go client share them, so the
// wire format is defined in one place.
package types
