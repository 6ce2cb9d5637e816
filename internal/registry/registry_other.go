//go:build !windows

package registry

// WindowsReader stubs the registry adapter on non-Windows builds. Every
// key lookup here is absent by construction, which the Reader contract
// treats identically to a missing key on real Windows (spec.md §7):
// silent, empty result, no error.
type WindowsReader struct{}

func (WindowsReader) EnumerateAppPaths(hive Hive, caseSensitive bool) ([]Record, error) {
	return nil, nil
}

func (WindowsReader) ScanEnvironment(hive Hive) (EnvVars, error) {
	return EnvVars{}, nil
}

func (WindowsReader) EnumerateKitwarePackages(hive Hive) ([]KitwarePackage, error) {
	return nil, nil
}
