package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eigeen/mhw-toolkit/internal/pattern"
	"github.com/eigeen/mhw-toolkit/internal/scan"
	"github.com/eigeen/mhw-toolkit/internal/ui/colorize"
)

func newScanCmd() *cobra.Command {
	var (
		offset int64
		mode   string
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "scan <image> <pattern>",
		Short: "Search an image for a byte signature",
		Long: `Search an image for a byte signature such as "48 8B ?? ?? 00".

With --raw the pattern is plain hex and every byte equal to the configured
wildcard (0xFF by default) matches anything.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}
			var p pattern.Pattern
			if raw {
				p, err = parseRaw(args[1], byte(cfg.Wildcard))
			} else {
				p, err = pattern.Parse(args[1])
			}
			if err != nil {
				return err
			}

			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			defer img.Close()
			res, err := img.resolver()
			if err != nil {
				return err
			}

			addrs, err := res.Scan(p, offset, m)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			for _, a := range addrs {
				fmt.Println(disasmLine(img, a))
			}
			fmt.Println(colorize.Detail(fmt.Sprintf("%d match(es) for %s", len(addrs), p)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "signed displacement added to each match")
	cmd.Flags().StringVarP(&mode, "mode", "m", "all", "first, all or unique")
	cmd.Flags().BoolVar(&raw, "raw", false, "pattern is plain hex bytes")
	return cmd
}

func parseMode(s string) (scan.Mode, error) {
	for _, m := range []scan.Mode{scan.First, scan.All, scan.Unique} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// parseRaw decodes hex text, ignoring whitespace, into a pattern whose
// wildcard is the given byte.
func parseRaw(text string, wildcard byte) (pattern.Pattern, error) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return pattern.Pattern{}, fmt.Errorf("raw pattern: %w", err)
	}
	if len(b) == 0 {
		return pattern.Pattern{}, errors.New("raw pattern: empty")
	}
	return pattern.New(b, wildcard), nil
}
