package version

import "runtime"

const serviceName = "extfilter"

// Overridden at build time with -ldflags "-X extfilter/internal/app/version.buildVersion=...".
var (
	buildVersion = "dev"
	builtAt      = ""
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	BuiltAt   string `json:"built_at,omitempty"`
	GoVersion string `json:"go_version"`
}

func GetInfo() Info {
	return Info{
		Service:   serviceName,
		Version:   buildVersion,
		BuiltAt:   builtAt,
		GoVersion: runtime.Version(),
	}
}
