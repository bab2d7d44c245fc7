// Package appfs embeds the static files shipped with the binaries.
package appfs

import "embed"

//go:embed assets migrations
var FS embed.FS
