package version

import "github.com/samcharles93/wavehost/pkg/wavemodel"

var (
	// Version is the release version (set via -ldflags).
	Version = ""
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
	// BuildTime is the build timestamp (set via -ldflags).
	BuildTime = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	// SDK is the waveform contract version models are built against.
	SDK string `json:"sdk_version"`
}

func Resolve() Info {
	resolved := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		SDK:       wavemodel.SDKVersion,
	}

	if resolved.Version == "" {
		if resolved.BuildTime != "" {
			resolved.Version = resolved.BuildTime
		} else {
			resolved.Version = "dev"
		}
	}

	return resolved
}

func String() string {
	info := Resolve()
	s := info.Version
	if info.Commit != "" {
		s += " (" + shortCommit(info.Commit) + ")"
	}
	return s + ", sdk " + info.SDK
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
