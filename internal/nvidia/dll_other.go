//go:build !windows

package nvidia

// Apply skips everything outside Windows, so this stub is never reached at
// runtime; it exists only to keep the package compiling everywhere.
func registerDLLDirectory(string) error {
	return nil
}
