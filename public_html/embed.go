// Package publichtml embeds the dashboard page, the report page and their
// static assets into the binary.
package publichtml

import "embed"

// FS holds index.html, report.html and static/.
//
//go:embed index.html report.html static
var FS embed.FS
