// Package configs provides embedded configuration defaults.
//
// models.yaml is embedded at build time so routing works out of the box
// in every distribution. A copy placed at <data-dir>/models.yaml
// overrides the embedded default (see internal/route.Load).
package configs

import _ "embed"

// ModelsConfig is the default model routing configuration.
//
//go:embed models.yaml
var ModelsConfig string
