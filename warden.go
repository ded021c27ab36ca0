package warden

// BuildRevision stores the commit in the git repository at build time
// and is specified with -ldflags at build time.
var BuildRevision = ""
