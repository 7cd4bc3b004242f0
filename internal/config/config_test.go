package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/eigeen/mhw-toolkit/internal/scan"
)

func TestDefault(t *testing.T) {
	c, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode empty: %v", err)
	}
	if c.Range() != scan.DefaultRange() {
		t.Errorf("Range = %+v", c.Range())
	}
	if c.Wildcard != 0xFF {
		t.Errorf("Wildcard = %s", c.Wildcard)
	}
	if l, _ := c.Level(); l != zapcore.WarnLevel {
		t.Errorf("Level = %v", l)
	}
}

func TestDecode(t *testing.T) {
	const doc = `
scan:
  start: 0x1_4000_0000
  end: 0x150000000
  window: 4096
log:
  level: debug
wildcard: 0xCC
records: extra.yaml
image_base: 0x180000000
`
	c, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := scan.Range{Start: 0x140000000, End: 0x150000000, Window: 0x1000, Overlap: scan.DefaultOverlap}
	if c.Range() != want {
		t.Errorf("Range = %+v, want %+v", c.Range(), want)
	}
	if c.Wildcard != 0xCC || c.Records != "extra.yaml" || c.ImageBase != 0x180000000 {
		t.Errorf("config = %+v", c)
	}
	if l, _ := c.Level(); l != zapcore.DebugLevel {
		t.Errorf("Level = %v", l)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad number", "scan:\n  start: 0xZZ\n"},
		{"inverted range", "scan:\n  start: 0x2000\n  end: 0x1000\n"},
		{"zero window", "scan:\n  window: 0\n"},
		{"wide wildcard", "wildcard: 0x100\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"not yaml", "scan: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mhwkit.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l, _ := c.Level(); l != zapcore.InfoLevel {
		t.Errorf("Level = %v", l)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0x10", 16},
		{"16", 16},
		{" 0xF0_00 ", 0xF000},
	}
	for _, tt := range tests {
		if got, err := ParseHex(tt.in); err != nil || got != tt.want {
			t.Errorf("ParseHex(%q) = %d, %v", tt.in, got, err)
		}
	}
	if _, err := ParseHex("-1"); err == nil {
		t.Error("negative accepted")
	}
}
