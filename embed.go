package atelier

import "embed"

// EmbeddedAssets contains static assets shipped with the framework,
// currently just analytics.js (the client-side tracking snippet).
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
