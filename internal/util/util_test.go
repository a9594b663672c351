// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	data := []byte("hello, world!")

	if err := AtomicWriteFile(path, data, 0o644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	if err := AtomicWriteFile(path, []byte("test data"), 0o644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	if err := AtomicWriteFile(path, []byte("initial"), 0o644); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("updated"), 0o644); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "updated" {
		t.Errorf("Content = %q, want %q", content, "updated")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "secret.txt")

	if err := AtomicWriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Perm = %o, want 600", info.Mode().Perm())
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"unicode", "日本語のテキスト", 5, "日本..."},
		{"tiny", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateRunes(tc.in, tc.max); got != tc.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "go.dev", 10, "go.dev"},
		{"ascii", "https://example.com/long", 10, "https:/..."},
		{"wide runes", "日本語テキスト", 7, "日本..."},
		{"tiny", "abcdef", 2, "ab"},
		{"zero", "abc", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateWidth(tc.in, tc.max)
			if got != tc.want {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
			if StringWidth(got) > tc.max {
				t.Errorf("width %d exceeds %d", StringWidth(got), tc.max)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 4); got != "ab  " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadRight("日本", 4); got != "日本" {
		t.Errorf("PadRight wide = %q", got)
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("  a\n\tb   c "); got != "a b c" {
		t.Errorf("SingleLine = %q, want %q", got, "a b c")
	}
}
