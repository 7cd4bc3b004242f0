package main

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/eigeen/mhw-toolkit/internal/ui/colorize"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Show image layout and exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			defer img.Close()
			info := img.info

			fmt.Printf("%s %s\n", colorize.Header("▶"), filepath.Base(info.Path))
			fmt.Printf("  %s %s  %s %s\n",
				colorize.Detail("Base:"), colorize.Address(info.ImageBase),
				colorize.Detail("End:"), colorize.Address(info.End()))
			fmt.Printf("  %s %s\n", colorize.Detail("Entry:"), colorize.Address(info.Entry))
			r := img.scanRange()
			fmt.Printf("  %s 0x%x..0x%x window 0x%x overlap 0x%x\n",
				colorize.Detail("Scan:"), r.Start, r.End, r.Window, r.Overlap)

			fmt.Println()
			fmt.Println(colorize.Header("Sections"))
			for _, s := range info.Sections {
				fmt.Printf("  %-8s %s  0x%-8x %s\n", s.Name, colorize.Address(s.VAddr), s.Size, s.Prot())
			}

			if len(info.Exports) == 0 {
				return nil
			}
			fmt.Println()
			fmt.Println(colorize.Header("Exports"))
			names := make([]string, 0, len(info.Exports))
			for name := range info.Exports {
				names = append(names, name)
			}
			slices.SortFunc(names, func(a, b string) int {
				return cmp.Compare(info.Exports[a], info.Exports[b])
			})
			for _, name := range names {
				fmt.Printf("  %s %s\n", colorize.Address(info.Exports[name]), colorize.FuncName(name))
			}
			return nil
		},
	}
}
