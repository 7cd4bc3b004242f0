package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/arch/x86/x86asm"

	"github.com/eigeen/mhw-toolkit/internal/address"
	"github.com/eigeen/mhw-toolkit/internal/config"
	"github.com/eigeen/mhw-toolkit/internal/ui/colorize"
)

func newDisasmCmd() *cobra.Command {
	var (
		count      int
		throughRet bool
	)
	cmd := &cobra.Command{
		Use:   "disasm <image> <address|record>",
		Short: "Disassemble instructions at an address or resolved record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			defer img.Close()

			addr, label, err := img.locate(args[1])
			if err != nil {
				return err
			}
			fmt.Println(colorize.FuncName(label + ":"))

			syms := img.symbols()
			for i := 0; i < count; i++ {
				inst, line := decodeAt(img, addr, syms)
				fmt.Println(line)
				if inst.Len == 0 {
					break
				}
				addr += uint64(inst.Len)
				if !throughRet && (inst.Op == x86asm.RET || (inst.Op == x86asm.INT && inst.Args[0] == x86asm.Imm(3))) {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "num", "n", 32, "max instructions to show")
	cmd.Flags().BoolVar(&throughRet, "through-ret", false, "keep going past RET")
	return cmd
}

// locate parses target as a hex address or resolves it as a record name.
func (img *image) locate(target string) (uint64, string, error) {
	if v, err := config.ParseHex(target); err == nil {
		return v, fmt.Sprintf("0x%x", v), nil
	}
	tbl, err := recordTable()
	if err != nil {
		return 0, "", err
	}
	rec, ok := tbl.Get(target)
	if !ok {
		return 0, "", fmt.Errorf("%q is neither an address nor a record", target)
	}
	res, err := img.resolver()
	if err != nil {
		return 0, "", err
	}
	addr, err := address.NewCache(res, nil).Resolve(rec)
	if err != nil {
		return 0, "", err
	}
	return addr, rec.Name, nil
}

// symbols maps export addresses back to names for operand labels.
func (img *image) symbols() func(uint64) (string, uint64) {
	byAddr := make(map[uint64]string, len(img.info.Exports))
	for name, a := range img.info.Exports {
		byAddr[a] = name
	}
	return func(a uint64) (string, uint64) {
		if name, ok := byAddr[a]; ok {
			return name, a
		}
		return "", 0
	}
}

// decodeAt decodes one instruction. A zero Len means the bytes could not be
// read or decoded; the returned line says which.
func decodeAt(img *image, addr uint64, syms func(uint64) (string, uint64)) (x86asm.Inst, string) {
	code, err := readUpTo(img, addr, 15)
	if err != nil {
		return x86asm.Inst{}, colorize.Line(addr, nil, "??", err.Error())
	}
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return x86asm.Inst{}, colorize.Line(addr, code[:1], fmt.Sprintf("db 0x%02x", code[0]), err.Error())
	}
	text := x86asm.IntelSyntax(inst, addr, syms)
	return inst, colorize.Line(addr, code[:inst.Len], text, "")
}

// disasmLine renders the instruction at addr for match listings.
func disasmLine(img *image, addr uint64) string {
	_, line := decodeAt(img, addr, img.symbols())
	return line
}

// readUpTo reads n bytes at addr, shortening the read when it runs into an
// unmapped page.
func readUpTo(img *image, addr uint64, n uint64) ([]byte, error) {
	var err error
	for ; n > 0; n-- {
		var b []byte
		if b, err = img.emu.MemRead(addr, n); err == nil {
			return b, nil
		}
	}
	return nil, err
}
