// Package audit records security-relevant events: authentication
// outcomes, CSRF rejections, rate limit blocks, and data mutations.
//
// Events flow through the Logger interface. The database logger keeps a
// queryable trail, the file logger appends newline-delimited JSON for
// shipping, and MultiLogger fans out to both. Audit writes never block
// request handling decisions; a failed write is surfaced to the caller
// but the guarded operation has already been decided.
package audit
