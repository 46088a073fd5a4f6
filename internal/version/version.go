package version

// Name identifies the service in logs, traces, and event subjects.
const Name = "deskbridge"

// Version is overridden at build time via -ldflags.
var Version = "dev"
