// SPDX-License-Identifier: Apache-2.0

package otel

import (
	"runtime/debug"
	"sync"
)

const unknownVersion = "unknown"

// buildVersion returns the module version of the main package when built
// from a tagged release, or the vcs revision of the build otherwise.
// `vcs.revision` is only stamped by `go build` on a package path.
var buildVersion = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknownVersion
	}

	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}

	return unknownVersion
})

// Version is reported as the service version of the exported telemetry.
func Version() string {
	return buildVersion()
}
