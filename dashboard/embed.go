// Package dashboard provides the embedded web UI assets for pulsewatch.
//
// The dashboard is a single HTML page with inline CSS and JavaScript. It
// reads the Server-Sent Events stream at /api/events, shows one colour-coded
// row per URL, and drives /api/start and /api/stop from its buttons.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page; "{{.Title}}" is replaced when served
//
//go:embed assets/*
var Assets embed.FS
