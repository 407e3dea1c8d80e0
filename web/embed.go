// Package web embeds the admin's templates and static assets into the binary.
package web

import "embed"

// Templates holds layouts, partials and pages under templates/.
//
//go:embed templates
var Templates embed.FS

// Static holds the stylesheet and the shell script under static/.
//
//go:embed static
var Static embed.FS
