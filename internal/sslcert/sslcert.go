// Package sslcert locates client certificate material on disk.
package sslcert

import (
	"os"
	"path/filepath"
	"strings"
)

// Default client certificate locations, matching libpq conventions.
const (
	DefaultCertPath = "~/.postgresql/postgresql.crt"
	DefaultKeyPath  = "~/.postgresql/postgresql.key"
)

// Material is a resolved client certificate/key pair. Paths are
// absolute, with any leading ~ already expanded.
type Material struct {
	CertFile string
	KeyFile  string
}

// Resolve expands the given cert and key paths (empty means the
// default location) and reports whether both files are present on
// disk. Client-cert TLS is all-or-nothing: a lone cert or lone key
// counts as absent.
func Resolve(certPath, keyPath string) (Material, bool) {
	if certPath == "" {
		certPath = DefaultCertPath
	}
	if keyPath == "" {
		keyPath = DefaultKeyPath
	}
	cert, ok := expand(certPath)
	if !ok {
		return Material{}, false
	}
	key, ok := expand(keyPath)
	if !ok {
		return Material{}, false
	}
	if !isFile(cert) || !isFile(key) {
		return Material{}, false
	}
	return Material{CertFile: cert, KeyFile: key}, true
}

// expand rewrites a leading "~/" against the current user's home
// directory.
func expand(path string) (string, bool) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), true
	}
	return path, true
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
