package config

import _ "embed"

// schemaCUE constrains CUE config files before decoding.
//
//go:embed schema.cue
var schemaCUE string
