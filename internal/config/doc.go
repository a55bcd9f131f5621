// Package config handles configuration loading for sprut-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SPRUT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/sprut/gateway.yaml
//  3. ~/.config/sprut/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	hub:
//	  password: "${SPRUT_PASSWORD}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	hub:
//	  call_timeout: "30s"
//	  dial_timeout: "10s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Hub connection:
//
//	hub:
//	  url: "wss://web.spruthub.ru/spruthub"
//	  email: "${SPRUT_EMAIL}"
//	  password: "${SPRUT_PASSWORD}"
//	  serial: "${SPRUT_SERIAL}"
//	  call_timeout: "30s"
//	  dial_timeout: "10s"
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"  # MCP endpoint and health checks
//
// Database:
//
//	database:
//	  path: "/var/lib/sprut/gateway.db"
//
// Authentication:
//
//	auth:
//	  require_auth: true
//	  jwt_secret: "${SPRUT_JWT_SECRET}"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "sprut-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: false
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
//   - Hub URL presence and ws/wss scheme
//   - Hub email, password, and serial presence
//   - HTTP address unless Tailscale is enabled
//   - Tailscale hostname when enabled
//   - JWT secret when require_auth is set
//   - Database path presence
//   - Duration format validity
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/sprut/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
