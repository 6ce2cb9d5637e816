package vcpkg

import (
	"os"
	"path/filepath"
)

// FSPortReader is the real PortReader (spec.md §4.7), reading a VCPKG
// checkout directly off disk: <root>/ports/<name>/{CONTROL,vcpkg.json,
// portfile.cmake}, <root>/installed/vcpkg/status, and
// <root>/installed/vcpkg/info/<pkg>_<ver>_<arch>.list.
type FSPortReader struct{}

func (FSPortReader) ListPortDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "ports"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (FSPortReader) ReadPortFile(root, name, filename string) (string, bool) {
	return readFileString(filepath.Join(root, "ports", name, filename))
}

func (FSPortReader) ReadInstalledStatus(root string) (string, bool) {
	return readFileString(filepath.Join(root, "installed", "vcpkg", "status"))
}

func (FSPortReader) ReadInfoList(root, pkg, version, arch string) (string, bool) {
	name := pkg + "_" + version + "_" + arch + ".list"
	return readFileString(filepath.Join(root, "installed", "vcpkg", "info", name))
}

func readFileString(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
