package validation

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

const AllowedExtension = ".xlsx"

// xlsx files are zip archives.
var zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}

// CheckFilename rejects empty names and anything that is not an .xlsx file.
func CheckFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return ErrNoFile
	}
	if strings.ToLower(filepath.Ext(filename)) != AllowedExtension {
		return ErrInvalidFileType
	}
	return nil
}

func CheckSize(size, limit int64) error {
	if size <= 0 {
		return ErrNoFile
	}
	if limit > 0 && size > limit {
		return ErrFileTooLarge
	}
	return nil
}

// CheckContent verifies that file starts with the zip signature and rewinds it.
func CheckContent(file io.ReadSeeker) error {
	buffer := make([]byte, len(zipSignature))
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if !bytes.Equal(buffer[:n], zipSignature) {
		return ErrExtensionMismatch
	}
	return nil
}

// SanitizeFilename keeps the base name and replaces characters that are
// unsafe in a path component.
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, base)
	base = strings.TrimLeft(base, ".")
	if base == "" || base == AllowedExtension[1:] {
		return "upload" + AllowedExtension
	}
	return base
}
