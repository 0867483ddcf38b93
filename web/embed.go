// Package web embeds the dashboard shell and its assets.
package web

import "embed"

// StaticFS holds index.html and the css/js it loads.
//
//go:embed static/*
var StaticFS embed.FS
