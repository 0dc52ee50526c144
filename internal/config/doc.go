// Package config handles configuration loading for the MoniHub console.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  base_url: "${MONIHUB_API_URL}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	api:
//	  timeout: "10s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Backend API:
//
//	api:
//	  base_url: "http://localhost:8080"  # Required, absolute URL
//	  timeout: "10s"                     # Per-request deadline
//
// Sign-in flow:
//
//	auth:
//	  sign_in_route: "/sign-in"          # Redirect target on page load
//	  sign_in_url: "http://localhost:8080/sign-in"
//
// Session persistence:
//
//	session:
//	  cookie_file: "~/.config/monihub/cookies.json"
//
// Server-fault recovery:
//
//	faults:
//	  max_retries: 3
//	  home_url: "/"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - api.base_url presence and absolute-URL shape
//   - Duration format validity
//   - Non-negative retry budget
//
// # Usage
//
//	cfg, err := config.Load("/etc/monihub/console.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
