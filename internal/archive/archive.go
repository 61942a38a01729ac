// Package archive creates and unpacks the zip artifacts that back published
// and shared projects.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/flate"
)

// Entry describes one file inside a project artifact.
type Entry struct {
	Name     string `json:"filename"`
	Size     string `json:"size"`
	Modified string `json:"modified"`
}

// Bundle zips the full tree under srcDir into destZip, creating parent
// directories as needed and replacing any stale artifact at the destination.
func Bundle(srcDir, destZip string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("project directory %s: %w", srcDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project directory %s: not a directory", srcDir)
	}

	if err := os.MkdirAll(filepath.Dir(destZip), 0o777); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.Remove(destZip); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale artifact: %w", err)
	}

	f, err := os.Create(destZip)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		fi, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(fi)
		if err != nil {
			return err
		}
		header.Name = name
		if d.IsDir() {
			header.Name += "/"
		} else {
			header.Method = zip.Deflate
		}

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("bundle %s: %w", srcDir, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return f.Close()
}

// Unbundle extracts zipPath into targetDir, creating it if absent. Every
// extracted file and directory is left world read/write/execute so any
// owning process in the multi-tenant deployment can manage it.
func Unbundle(zipPath, targetDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(targetDir, 0o777); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	for _, entry := range r.File {
		dest, err := sanitizePath(targetDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o777); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o777); err != nil {
			return err
		}
		if err := extractFile(entry, dest); err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
	}

	// chmod after the fact: MkdirAll and Create are subject to umask.
	return filepath.WalkDir(targetDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Chmod(path, 0o777)
	})
}

// Remove deletes the artifact if present; a missing artifact is not an
// error.
func Remove(zipPath string) error {
	if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListEntries reports every entry of the artifact whose name does not start
// with a dot, with sizes rendered in binary units.
func ListEntries(zipPath string) ([]Entry, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", zipPath, err)
	}
	defer r.Close()

	var entries []Entry
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, ".") {
			continue
		}
		entries = append(entries, Entry{
			Name:     f.Name,
			Size:     humanize.IBytes(f.UncompressedSize64),
			Modified: f.Modified.UTC().Format(time.RFC3339),
		})
	}
	return entries, nil
}

func sanitizePath(targetDir, name string) (string, error) {
	dest := filepath.Join(targetDir, filepath.FromSlash(name))
	if !strings.HasPrefix(dest, filepath.Clean(targetDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("artifact entry %s escapes target directory", name)
	}
	return dest, nil
}

func extractFile(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o777)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
