//go:build windows

package nvidia

import "golang.org/x/sys/windows"

// registerDLLDirectory adds dir to the set of directories the loader
// searches when resolving DLLs by name. This covers libraries the engine
// process loads directly; the PATH prepend in Apply covers anything that
// still resolves through PATH.
func registerDLLDirectory(dir string) error {
	path, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return err
	}
	_, err = windows.AddDllDirectory(path)
	return err
}
