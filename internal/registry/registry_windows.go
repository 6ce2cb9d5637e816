//go:build windows

package registry

import (
	"time"

	winreg "golang.org/x/sys/windows/registry"
)

// WindowsReader is the real Reader, backed by
// golang.org/x/sys/windows/registry.
type WindowsReader struct{}

func rootKey(h Hive) winreg.Key {
	if h == HKLM {
		return winreg.LOCAL_MACHINE
	}
	return winreg.CURRENT_USER
}

func (WindowsReader) EnumerateAppPaths(hive Hive, caseSensitive bool) ([]Record, error) {
	root, err := winreg.OpenKey(rootKey(hive), appPathsKey, winreg.ENUMERATE_SUB_KEYS|winreg.READ)
	if err != nil {
		if err == winreg.ErrNotExist {
			return nil, nil
		}
		return nil, err
	}
	defer root.Close()

	names, err := root.ReadSubKeyNames(-1)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, name := range names {
		sub, err := winreg.OpenKey(rootKey(hive), appPathsKey+`\`+name, winreg.QUERY_VALUE)
		if err != nil {
			continue // a key that vanished between enumeration and open is silently skipped
		}
		filename, _, err := sub.GetStringValue("")
		if err != nil {
			sub.Close()
			continue
		}
		dir, _, _ := sub.GetStringValue("Path")
		sub.Close()

		records = append(records, Record{
			ParentKey:    hive,
			FriendlyName: name,
			Filename:     filename,
			Directory:    dir,
			ModTime:      time.Time{}, // stat'd by the caller once the path is resolved
		})
	}
	sortRecords(records, caseSensitive)
	return records, nil
}

func (WindowsReader) ScanEnvironment(hive Hive) (EnvVars, error) {
	key := userEnvKey
	if hive == HKLM {
		key = sessionManagerEnvKey
	}
	k, err := winreg.OpenKey(rootKey(hive), key, winreg.QUERY_VALUE)
	if err != nil {
		if err == winreg.ErrNotExist {
			return EnvVars{}, nil
		}
		return EnvVars{}, err
	}
	defer k.Close()

	get := func(name string) string {
		v, _, err := k.GetStringValue(name)
		if err != nil {
			return ""
		}
		return v
	}
	return EnvVars{Path: get("Path"), Include: get("INCLUDE"), Lib: get("LIB")}, nil
}

func (WindowsReader) EnumerateKitwarePackages(hive Hive) ([]KitwarePackage, error) {
	root, err := winreg.OpenKey(rootKey(hive), kitwarePackagesKey, winreg.ENUMERATE_SUB_KEYS|winreg.READ)
	if err != nil {
		if err == winreg.ErrNotExist {
			return nil, nil
		}
		return nil, err
	}
	defer root.Close()

	pkgNames, err := root.ReadSubKeyNames(-1)
	if err != nil {
		return nil, err
	}

	var out []KitwarePackage
	for _, pkgName := range pkgNames {
		pkgKey, err := winreg.OpenKey(rootKey(hive), kitwarePackagesKey+`\`+pkgName, winreg.ENUMERATE_SUB_KEYS|winreg.READ)
		if err != nil {
			continue
		}
		uuids, err := pkgKey.ReadSubKeyNames(-1)
		if err != nil {
			pkgKey.Close()
			continue
		}
		for _, uuid := range uuids {
			uk, err := winreg.OpenKey(rootKey(hive), kitwarePackagesKey+`\`+pkgName+`\`+uuid, winreg.QUERY_VALUE)
			if err != nil {
				continue
			}
			value, _, err := uk.GetStringValue("")
			uk.Close()
			if err != nil {
				continue
			}
			out = append(out, KitwarePackage{Package: pkgName, UUID: uuid, Path: value})
		}
		pkgKey.Close()
	}
	return out, nil
}
