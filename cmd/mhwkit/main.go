package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eigeen/mhw-toolkit/internal/address"
	"github.com/eigeen/mhw-toolkit/internal/config"
	"github.com/eigeen/mhw-toolkit/internal/emulator"
	"github.com/eigeen/mhw-toolkit/internal/game"
	mlog "github.com/eigeen/mhw-toolkit/internal/log"
	"github.com/eigeen/mhw-toolkit/internal/scan"
)

var (
	verbose     bool
	configPath  string
	recordsPath string
	imageBase   string
	configRange bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mhwkit",
		Short: "Resolve game signatures and inspect x86-64 PE images",
		Long: `mhwkit maps a PE32+ image into an emulated x86-64 address space and resolves
byte signatures against it the same way the in-process toolkit does at runtime.

Examples:
  mhwkit info MonsterHunterWorld.exe
  mhwkit scan MonsterHunterWorld.exe "48 83 EC 28 48 8B 89 58 76 00 00 48 85 C9"
  mhwkit resolve MonsterHunterWorld.exe quest
  mhwkit disasm MonsterHunterWorld.exe monster.Ctor -n 20`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose debug output")
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&recordsPath, "records", "", "extra YAML record table")
	pf.StringVar(&imageBase, "base", "", "load the image at this base (hex)")
	pf.BoolVar(&configRange, "config-range", false, "scan the configured range instead of the image bounds")

	rootCmd.AddCommand(newScanCmd(), newResolveCmd(), newDisasmCmd(), newInfoCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// cfg is the effective configuration after flags are applied.
var cfg = config.Default()

func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	if recordsPath != "" {
		cfg.Records = recordsPath
	}
	if imageBase != "" {
		v, err := config.ParseHex(imageBase)
		if err != nil {
			return fmt.Errorf("--base: %w", err)
		}
		cfg.ImageBase = config.Hex(v)
	}

	if verbose {
		mlog.Init(true)
		return nil
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	mlog.InitLevel(level)
	return nil
}

// image is a PE loaded into a fresh emulator.
type image struct {
	emu  *emulator.Emulator
	info *emulator.PEInfo
}

func loadImage(path string) (*image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	emu, err := emulator.New()
	if err != nil {
		return nil, fmt.Errorf("create emulator: %w", err)
	}
	info, err := emu.LoadPEBytes(data, uint64(cfg.ImageBase))
	if err != nil {
		emu.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	info.Path = path
	mlog.Default().Debug("image loaded",
		mlog.Ptr("base", info.ImageBase),
		mlog.Size(info.ImageSize),
	)
	return &image{emu: emu, info: info}, nil
}

func (img *image) Close() { img.emu.Close() }

// scanRange is the image bounds, or the configured range with --config-range.
// Window and overlap always come from the configuration.
func (img *image) scanRange() scan.Range {
	r := cfg.Range()
	if !configRange {
		r.Start, r.End = img.info.ImageBase, img.info.End()
	}
	return r
}

func (img *image) resolver() (*scan.Resolver, error) {
	return scan.New(img.emu,
		scan.WithRange(img.scanRange()),
		scan.WithLogger(mlog.Default()),
	)
}

// recordTable returns the embedded records plus those of the configured
// record file. A name defined in both is an error.
func recordTable() (*address.Table, error) {
	t, err := address.NewTable()
	if err != nil {
		return nil, err
	}
	if err := t.Merge(game.Records()); err != nil {
		return nil, err
	}
	if cfg.Records == "" {
		return t, nil
	}
	f, err := os.Open(cfg.Records)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()
	extra, err := address.LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Records, err)
	}
	if err := t.Merge(extra); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Records, err)
	}
	return t, nil
}
