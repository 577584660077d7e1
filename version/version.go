// Package version tells which build of beat is running.
package version

import "runtime/debug"

// Version is set at build time:
//
//	go build -ldflags "-X github.com/ableplugs/beat/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision of the build, with a -dirty suffix for a
// modified working tree, or empty if the build has no VCS info.
var Hash = vcsHash()

// VersionOrHash is Version if set, Hash otherwise.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

func vcsHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty && revision != "" {
		revision += "-dirty"
	}
	return revision
}
