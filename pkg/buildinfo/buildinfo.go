package buildinfo

import "runtime"

// These vars are set at build time via ldflags:
// -X github.com/ocnguye/epa-dash-sub000/pkg/buildinfo.Version=v0.3.1
// -X github.com/ocnguye/epa-dash-sub000/pkg/buildinfo.Commit=4c1f9aa
// -X github.com/ocnguye/epa-dash-sub000/pkg/buildinfo.BuildTime=2026-08-12T09:00:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info holds build information for the binary.
type Info struct {
	ServiceName string `json:"service_name"`
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildTime   string `json:"build_time"`
	GoVersion   string `json:"go_version"`
}

// Get returns build info for the named binary.
func Get(serviceName string) Info {
	return Info{
		ServiceName: serviceName,
		Version:     Version,
		Commit:      Commit,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
	}
}

// String returns a human-readable one-liner like "v0.3.1 (4c1f9aa, 2026-08-12T09:00:00Z)"
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}
