package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eigeen/mhw-toolkit/internal/address"
	mlog "github.com/eigeen/mhw-toolkit/internal/log"
	"github.com/eigeen/mhw-toolkit/internal/scan"
	"github.com/eigeen/mhw-toolkit/internal/ui/colorize"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <image> [record|group ...]",
		Short: "Resolve named records against an image",
		Long: `Resolve named records against an image. Arguments select records by full
name ("quest.Accept") or by group ("quest"); with none every record is resolved.
Each record must match exactly once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := recordTable()
			if err != nil {
				return err
			}
			recs, err := selectRecords(tbl, args[1:])
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
			cache := address.NewCache(res, mlog.Default())

			failed := 0
			for _, rec := range recs {
				addr, err := cache.Resolve(rec)
				if err != nil {
					failed++
					fmt.Printf("%-28s %s\n", rec.Name, colorize.Error(describe(err)))
					continue
				}
				fmt.Printf("%-28s %s\n", rec.Name, colorize.Address(addr))
			}
			fmt.Println(colorize.Border(strings.Repeat("─", 45)))
			fmt.Printf("%d resolved, %d failed\n", len(recs)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d records unresolved", failed, len(recs))
			}
			return nil
		},
	}
}

// selectRecords picks records by name or group, keeping table order and
// dropping duplicates. No selectors selects everything.
func selectRecords(t *address.Table, selectors []string) ([]*address.Record, error) {
	if len(selectors) == 0 {
		return t.Records(), nil
	}
	seen := make(map[*address.Record]bool)
	var out []*address.Record
	add := func(r *address.Record) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, s := range selectors {
		if r, ok := t.Get(s); ok {
			add(r)
			continue
		}
		group := t.Group(s)
		if len(group) == 0 {
			return nil, fmt.Errorf("no record or group named %q", s)
		}
		for _, r := range group {
			add(r)
		}
	}
	return out, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, scan.ErrNotFound):
		return "not found"
	case errors.Is(err, scan.ErrMultipleMatches):
		var re *address.ResolveError
		if errors.As(err, &re) {
			return re.Err.Error()
		}
	}
	return err.Error()
}
