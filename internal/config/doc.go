// Package config loads and validates boxscout configuration from TOML.
//
// Configuration carries every policy constant the scoring and matching
// code depends on (matcher weights, tier cutpoints, eligibility floors)
// so that tuning never requires a rebuild.
package config
