// ABOUTME: Build version constants
// ABOUTME: Release identifiers; no other package in this module references them
package version

const (
	// Version is the driftsync release version.
	Version = "0.1.0"

	// Product names the software.
	Product = "driftsync"

	// Manufacturer identifies the project.
	Manufacturer = "driftsync"
)
