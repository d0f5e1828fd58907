// Package scaffold provides the embedded starter site used by
// `pubgarden new`.
package scaffold

import "embed"

// Templates contains the starter site files. They use Go text/template
// syntax and carry a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS
