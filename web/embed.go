// Package web embeds the portal's templates and static assets so the binary
// ships self-contained.
package web

import "embed"

// Templates holds the layout, partial and page templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static holds CSS and other assets served under /static/.
//
//go:embed static/**/*
var Static embed.FS
