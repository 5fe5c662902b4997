package files

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain"
	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/adapter"
)

var _ adapter.FileStore = (*DiskStore)(nil)

// DiskStore serves package PDFs from a single flat directory. File names
// are always resolved relative to the root; anything trying to climb out
// of it is rejected.
type DiskStore struct {
	root string
	log  *zerolog.Logger
}

func NewDiskStore(root string, logger *zerolog.Logger) *DiskStore {
	l := logger.With().Str("component", "DiskStore").Logger()
	return &DiskStore{root: root, log: &l}
}

func (s *DiskStore) resolve(name string) (string, error) {
	clean := filepath.Base(filepath.Clean(name))
	if clean == "." || clean == ".." || strings.ContainsAny(clean, `/\`) {
		return "", domain.ErrInvalidArgument
	}
	return filepath.Join(s.root, clean), nil
}

func (s *DiskStore) Stat(name string) (int64, error) {
	path, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, domain.ErrFileMissing
		}
		return 0, err
	}
	if info.IsDir() {
		return 0, domain.ErrFileMissing
	}
	return info.Size(), nil
}

func (s *DiskStore) Open(name string) (io.ReadCloser, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrFileMissing
		}
		return nil, err
	}
	return f, nil
}

// VerifyCatalog stats every file the catalog references and logs the ones
// that are missing. Run once at startup; a missing file is a warning, not
// a fatal error, because orders for the other packages must keep working.
func (s *DiskStore) VerifyCatalog(catalog *model.Catalog) int {
	missing := 0
	for _, pt := range catalog.PackageTypes() {
		pkg, ok := catalog.Package(pt)
		if !ok {
			continue
		}
		if _, err := s.Stat(pkg.SecureFileName); err != nil {
			s.log.Warn().Str("package", pt).Str("file", pkg.SecureFileName).Msg("package file missing")
			missing++
			continue
		}
		s.log.Info().Str("package", pt).Str("file", pkg.SecureFileName).Msg("package file present")
	}
	return missing
}
