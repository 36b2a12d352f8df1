package basil

// Version and BuildDate identify a release; both may be overridden by the
// linker at build time.
var (
	Version   = "0.3.0"
	BuildDate = "unknown"
)
