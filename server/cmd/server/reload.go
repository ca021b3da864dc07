package main

import (
	"reflect"

	"github.com/siriusexpedition/sirius/server/internal/config"
)

// restartSections lists the config sections that differ between running
// and updated but are only read at startup. Password rules are excluded
// because they are swapped live. ui_dir is excluded because -ui-dir may
// override it.
func restartSections(running, updated config.ServerConfig) []string {
	var out []string
	if running.HTTPPort != updated.HTTPPort {
		out = append(out, "http_port")
	}
	if running.Timezone != updated.Timezone {
		out = append(out, "timezone")
	}
	if !reflect.DeepEqual(running.Storage, updated.Storage) {
		out = append(out, "storage")
	}
	if !reflect.DeepEqual(running.Newsletter, updated.Newsletter) {
		out = append(out, "newsletter")
	}
	if !reflect.DeepEqual(running.Auth, updated.Auth) {
		out = append(out, "auth")
	}
	if !reflect.DeepEqual(running.Hub, updated.Hub) {
		out = append(out, "hub")
	}
	return out
}
