package common

// Build information, set at link time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)
