package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	ErrInvalidManifest  = errors.New("manifest: invalid manifest")
	ErrDuplicatePackage = errors.New("manifest: duplicate package")
)

//go:embed default.toml
var defaultManifest string

type fileManifest struct {
	Packages []filePackage `toml:"package"`
}

type filePackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version,omitempty"`
}

// Default returns the package list compiled into the binary.
func Default() ([]PackageSpec, error) {
	specs, err := Decode(strings.NewReader(defaultManifest))
	if err != nil {
		return nil, fmt.Errorf("embedded manifest: %w", err)
	}
	return specs, nil
}

// LoadFile reads a manifest from disk.
func LoadFile(path string) ([]PackageSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest load failed (%s): %w", path, err)
	}
	defer f.Close()

	specs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("manifest parse failed (%s): %w", path, err)
	}
	return specs, nil
}

// Decode parses a TOML manifest of [[package]] tables. Order is preserved;
// unknown keys and repeated package names are rejected.
func Decode(r io.Reader) ([]PackageSpec, error) {
	var raw fileManifest
	meta, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidManifest, strings.Join(keys, ", "))
	}

	specs := make([]PackageSpec, 0, len(raw.Packages))
	seen := make(map[string]struct{}, len(raw.Packages))
	for i, pkg := range raw.Packages {
		spec := PackageSpec{
			Name:       strings.TrimSpace(pkg.Name),
			Constraint: strings.TrimSpace(pkg.Version),
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("package[%d]: %w", i, err)
		}
		if _, ok := seen[spec.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePackage, spec.Name)
		}
		seen[spec.Name] = struct{}{}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Encode writes specs in the format Decode reads.
func Encode(w io.Writer, specs []PackageSpec) error {
	out := fileManifest{Packages: make([]filePackage, 0, len(specs))}
	for _, spec := range specs {
		out.Packages = append(out.Packages, filePackage{Name: spec.Name, Version: spec.Constraint})
	}
	return toml.NewEncoder(w).Encode(out)
}
