package storage

// Options configures a PageStore.
type Options struct {
	// ReadOnly opens the file without write access.
	// Default: false.
	ReadOnly bool

	// NoSync skips fsync in Sync. Writes still reach the OS.
	// Default: false.
	NoSync bool
}

// DefaultOptions returns the default PageStore options.
func DefaultOptions() Options {
	return Options{
		ReadOnly: false,
		NoSync:   false,
	}
}

// WithReadOnly enables or disables read-only mode.
func (o Options) WithReadOnly(readOnly bool) Options {
	o.ReadOnly = readOnly
	return o
}

// WithNoSync enables or disables fsync on Sync.
func (o Options) WithNoSync(noSync bool) Options {
	o.NoSync = noSync
	return o
}
