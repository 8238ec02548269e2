// Package assets embeds files shipped with the binary.
package assets

import _ "embed"

// ConfigExample holds an annotated bridge.yaml.
//
//go:embed config_example_embed.yaml
var ConfigExample []byte
