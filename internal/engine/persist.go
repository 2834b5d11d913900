package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/index"
	"github.com/sifthq/docsift/internal/store"
)

// The persisted store is two artifacts in one directory. They are one
// logical unit: loading one without the other is corruption, never a
// silent fallback to an empty partner.
const (
	indexArtifact = "index.bin"
	storeArtifact = "chunks.json"
)

// saveArtifacts writes both snapshots through temp files and renames them
// into place, so an interrupted rebuild leaves the previous artifacts
// intact rather than a half-written pair.
func saveArtifacts(dir string, idx *index.Flat, chunks *store.ChunkStore) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	indexTmp, err := writeTemp(dir, indexArtifact, idx)
	if err != nil {
		return err
	}
	storeTmp, err := writeTemp(dir, storeArtifact, chunks)
	if err != nil {
		os.Remove(indexTmp)
		return err
	}

	if err := os.Rename(indexTmp, filepath.Join(dir, indexArtifact)); err != nil {
		os.Remove(indexTmp)
		os.Remove(storeTmp)
		return fmt.Errorf("swap index artifact: %w", err)
	}
	if err := os.Rename(storeTmp, filepath.Join(dir, storeArtifact)); err != nil {
		os.Remove(storeTmp)
		return fmt.Errorf("swap store artifact: %w", err)
	}
	return nil
}

func writeTemp(dir, artifact string, src io.WriterTo) (string, error) {
	f, err := os.CreateTemp(dir, artifact+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", artifact, err)
	}

	if _, err := src.WriteTo(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", artifact, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("sync %s: %w", artifact, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", artifact, err)
	}
	return f.Name(), nil
}

// loadArtifacts reads a persisted index/store pair. Returns (nil, nil, nil)
// when neither artifact exists; one without the other, or a row/record
// count mismatch, is IndexCorruption and the caller must decide to rebuild
// from source.
func loadArtifacts(dir string, dim int) (*index.Flat, *store.ChunkStore, error) {
	indexPath := filepath.Join(dir, indexArtifact)
	storePath := filepath.Join(dir, storeArtifact)

	indexExists := fileExists(indexPath)
	storeExists := fileExists(storePath)

	switch {
	case !indexExists && !storeExists:
		return nil, nil, nil
	case indexExists != storeExists:
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorruption,
			"one persisted artifact present without the other", domain.ErrIndexCorruption)
	}

	idxFile, err := os.Open(indexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open index artifact: %w", err)
	}
	defer idxFile.Close()

	idx, err := index.ReadFlat(idxFile)
	if err != nil {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorruption, "index artifact unreadable", err)
	}

	storeFile, err := os.Open(storePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store artifact: %w", err)
	}
	defer storeFile.Close()

	chunks, err := store.Read(storeFile)
	if err != nil {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorruption, "store artifact unreadable", err)
	}

	if idx.Dimension() != dim {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorruption,
			fmt.Sprintf("persisted dimension %d does not match configured %d", idx.Dimension(), dim),
			domain.ErrIndexCorruption)
	}
	if idx.Len() != chunks.Len() {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorruption,
			fmt.Sprintf("index has %d rows but store has %d records", idx.Len(), chunks.Len()),
			domain.ErrIndexCorruption)
	}

	return idx, chunks, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
