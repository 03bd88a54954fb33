package assets

import (
	"embed"
)

// Database migrations
//
//go:embed migrations
var Migrations embed.FS

// OAuth callback page
//
//go:embed callback.html
var CallbackPage string
