package version

import (
	"runtime"
	"runtime/debug"
)

// version set at build-time
var version = "main"

const shortHashLen = 7

// Info describes the running binary.
type Info struct {
	Version      string `json:"version"`
	GitCommit    string `json:"git_commit"`
	GitTimestamp string `json:"git_timestamp"`
	GoVersion    string `json:"go_version"`
}

// Get collects the version and the vcs stamp of the running binary.
func Get() Info {
	info := Info{
		Version:      Version(),
		GitCommit:    "unknown",
		GitTimestamp: "unknown",
		GoVersion:    runtime.Version(),
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = s.Value[:min(len(s.Value), shortHashLen)]
		case "vcs.time":
			info.GitTimestamp = s.Value
		}
	}

	return info
}

// Version returns the version
func Version() string {
	if version == "" {
		return "main"
	}

	return version
}
