package adapter

import "io"

// FileStore abstracts the protected directory the package PDFs live in.
// That directory is never exposed statically; files only leave through
// the download gate.
type FileStore interface {
	// Stat returns the file size or domain.ErrFileMissing.
	Stat(name string) (int64, error)
	Open(name string) (io.ReadCloser, error)
}
