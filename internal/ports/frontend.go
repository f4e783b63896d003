package ports

// ScanFrontend defines the interface for the surfaces that accept scan requests
type ScanFrontend interface {
	// Start starts the front end
	Start() error

	// Stop stops the front end
	Stop() error
}
