package constants

// ProductName prefixes the version banner and the metrics namespace.
const ProductName = "cronkeeper"

// Build metadata used when -ldflags does not provide it.
const (
	DefaultVersion = "1.0.0-dev"

	unknownBuildValue = "unknown"
	DefaultBuildTime  = unknownBuildValue
	DefaultGitCommit  = unknownBuildValue
	DefaultGoVersion  = unknownBuildValue
)
