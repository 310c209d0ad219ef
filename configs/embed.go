// Package configs provides embedded configuration templates for docsearch.
//
// Templates are embedded at build time so `docsearch config init` works from
// any distribution, including plain binary releases.
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/docsearch/config.yaml)
//  3. Project config (.docsearch.yaml)
//  4. Environment variables (DOCSEARCH_*)
package configs

import _ "embed"

// ProjectConfigTemplate is the template for project-level configuration.
// Created by: `docsearch config init` at .docsearch.yaml in the project root.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
