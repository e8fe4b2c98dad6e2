// Package catalogs provides the embedded Pulse token registry and the
// default SCSS schema source it was authored from.
package catalogs

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// RegistryJSON lists every Pulse widget token with its CSS custom property
// and default value, embedded at build time.
//
//go:embed registry.json
var RegistryJSON []byte

//go:embed pulse/*.scss
var pulseFS embed.FS

// PulseSource returns the default schema source files.
func PulseSource() fs.FS {
	sub, err := fs.Sub(pulseFS, "pulse")
	if err != nil {
		panic(fmt.Sprintf("catalogs: embedded pulse source missing: %v", err))
	}
	return sub
}

// MaterializePulse writes the default schema source into dir so it can be
// built like any on-disk source root. Existing files are overwritten.
func MaterializePulse(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	src := PulseSource()
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return err
	}
	for _, e := range entries {
		data, err := fs.ReadFile(src, e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
	}
	return nil
}
