// Package config loads the sirius-server configuration from the `server:`
// section of config.yaml.
//
// Config fields:
//   - HTTPPort: port for the REST API and WebSocket hub (default 8080)
//   - UIDir: optional directory of pre-built site files
//   - Timezone: IANA zone bounding the "today" counter (default local)
//   - Storage: backend (memory, sqlite or mongo), record key, paths
//   - Password: admin password rules (defaults to every rule, 8 characters)
//   - Newsletter: double opt-in list settings; the API key comes from APIKeyEnv
//   - Auth: JWT secret env var, token TTL, metrics API key
//   - Hub.Interval: dashboard broadcast period (default 5s)
//
// Load(path) applies defaults, unmarshals the YAML, applies SIRIUS_*
// environment overrides, then validates. Watch(ctx, path, fn) reloads the
// file on change and hands valid configs to fn.
package config
