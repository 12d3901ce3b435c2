package validation

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestCheckFilename(t *testing.T) {
	cases := map[string]error{
		"report.xlsx": nil,
		"REPORT.XLSX": nil,
		"report.xls":  ErrInvalidFileType,
		"report.csv":  ErrInvalidFileType,
		"report":      ErrInvalidFileType,
		"":            ErrNoFile,
		"   ":         ErrNoFile,
		"a.xlsx.exe":  ErrInvalidFileType,
		"dir/in.xlsx": nil,
	}
	for name, want := range cases {
		if got := CheckFilename(name); !errors.Is(got, want) {
			t.Errorf("CheckFilename(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize(0, 100); !errors.Is(err, ErrNoFile) {
		t.Errorf("expected ErrNoFile, got %v", err)
	}
	if err := CheckSize(101, 100); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
	if err := CheckSize(100, 100); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestCheckContent(t *testing.T) {
	zip := bytes.NewReader([]byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00})
	if err := CheckContent(zip); err != nil {
		t.Fatalf("expected zip content to pass, got %v", err)
	}
	if pos, _ := zip.Seek(0, io.SeekCurrent); pos != 0 {
		t.Errorf("expected reader to be rewound, at %d", pos)
	}

	if err := CheckContent(bytes.NewReader([]byte("Title,Price\n"))); !errors.Is(err, ErrExtensionMismatch) {
		t.Errorf("expected ErrExtensionMismatch, got %v", err)
	}
	if err := CheckContent(bytes.NewReader(nil)); !errors.Is(err, ErrExtensionMismatch) {
		t.Errorf("expected ErrExtensionMismatch for empty content, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.xlsx":           "report.xlsx",
		"../../etc/passwd.xlsx": "passwd.xlsx",
		`C:\Users\me\in.xlsx`:   "in.xlsx",
		"商品 列表.xlsx":            "商品 列表.xlsx",
		"a:b?.xlsx":             "a_b_.xlsx",
		".xlsx":                 "upload.xlsx",
		"..":                    "upload.xlsx",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
