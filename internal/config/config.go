// Package config loads the mhwkit YAML configuration.
//
// A minimal file:
//
//	scan:
//	  start: 0x140000000
//	  end: 0x143000000
//	log:
//	  level: debug
//	records: ./records.yaml
//
// Fields left out keep their defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eigeen/mhw-toolkit/internal/pattern"
	"github.com/eigeen/mhw-toolkit/internal/scan"
)

// Hex is an unsigned integer written in YAML as 0x-prefixed hex or decimal.
// Underscores are accepted as digit separators ("0x1_4000_0000").
type Hex uint64

func (h *Hex) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseHex(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*h = Hex(v)
	return nil
}

func (h Hex) MarshalYAML() (any, error) {
	return "0x" + strconv.FormatUint(uint64(h), 16), nil
}

func (h Hex) String() string { return "0x" + strconv.FormatUint(uint64(h), 16) }

// ParseHex parses s as Hex does.
func ParseHex(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(strings.TrimSpace(s), "_", ""), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

// Scan is the resolver sweep range.
type Scan struct {
	Start   Hex `yaml:"start"`
	End     Hex `yaml:"end"`
	Window  Hex `yaml:"window"`
	Overlap Hex `yaml:"overlap"`
}

// Log selects the minimum log level: debug, info, warn or error.
type Log struct {
	Level string `yaml:"level"`
}

// Config is the top-level configuration.
type Config struct {
	Scan Scan `yaml:"scan"`
	Log  Log  `yaml:"log"`

	// Wildcard is the byte treated as a wildcard in raw byte signatures.
	Wildcard Hex `yaml:"wildcard"`

	// Records is an optional YAML record table merged over the embedded one.
	Records string `yaml:"records"`

	// ImageBase rebases PE images loaded by the CLI. Zero keeps the
	// preferred base.
	ImageBase Hex `yaml:"image_base"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scan: Scan{
			Start:   Hex(scan.DefaultStart),
			End:     Hex(scan.DefaultEnd),
			Window:  Hex(scan.DefaultWindow),
			Overlap: Hex(scan.DefaultOverlap),
		},
		Log:      Log{Level: "warn"},
		Wildcard: Hex(pattern.DefaultWildcard),
	}
}

// Decode reads YAML from r over the defaults and validates the result.
// An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the file at path. A missing file is an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Scan.End <= c.Scan.Start {
		return fmt.Errorf("scan: end %s <= start %s", c.Scan.End, c.Scan.Start)
	}
	if c.Scan.Window == 0 {
		return errors.New("scan: zero window")
	}
	if c.Wildcard > 0xFF {
		return fmt.Errorf("wildcard %s is not a byte", c.Wildcard)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Range converts the scan section.
func (c *Config) Range() scan.Range {
	return scan.Range{
		Start:   uint64(c.Scan.Start),
		End:     uint64(c.Scan.End),
		Window:  uint64(c.Scan.Window),
		Overlap: uint64(c.Scan.Overlap),
	}
}

// Level parses the log level.
func (c *Config) Level() (zapcore.Level, error) {
	if c.Log.Level == "" {
		return zapcore.WarnLevel, nil
	}
	l, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, fmt.Errorf("log: %w", err)
	}
	return l, nil
}
