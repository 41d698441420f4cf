// Package config loads hackpath settings.
//
// Values are layered: built-in defaults, then the TOML file, then a .env
// file, then the process environment (HACKPATH_*). The process environment
// wins over .env. Unknown TOML keys are rejected. Paths are expanded and
// made absolute before validation.
package config
