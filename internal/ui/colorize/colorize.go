package colorize

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// pipeline is the lexer/style/formatter triple used for instructions.
type pipeline struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
}

var getPipeline = sync.OnceValue(func() pipeline {
	return pipeline{
		lexer:     firstLexer("nasm", "gas"),
		style:     firstStyle(DisasmDark.Name, "dracula", "monokai"),
		formatter: firstFormatter("terminal16m", "terminal256"),
	}
})

func firstLexer(names ...string) chroma.Lexer {
	for _, name := range names {
		if l := lexers.Get(name); l != nil {
			return l
		}
	}
	return nil
}

func firstStyle(names ...string) *chroma.Style {
	for _, name := range names {
		if s := styles.Get(name); s != nil {
			return s
		}
	}
	return styles.Fallback
}

func firstFormatter(names ...string) chroma.Formatter {
	for _, name := range names {
		if f := formatters.Get(name); f != nil {
			return f
		}
	}
	return formatters.Fallback
}

// IsDisabled reports whether colors are turned off through the environment.
func IsDisabled() bool {
	return os.Getenv("MHWKIT_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

// Instruction highlights one Intel-syntax x86 instruction.
func Instruction(insn string) string {
	if IsDisabled() {
		return insn
	}
	p := getPipeline()
	if p.lexer == nil {
		return insn
	}
	it, err := p.lexer.Tokenise(nil, insn)
	if err != nil {
		return insn
	}
	var buf strings.Builder
	if err := p.formatter.Format(&buf, p.style, it); err != nil {
		return insn
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func paint(rgb, s string) string {
	if IsDisabled() {
		return s
	}
	return "\033[38;2;" + rgb + "m" + s + "\033[0m"
}

// Address formats a 64-bit address in yellow.
func Address(addr uint64) string {
	return paint("255;200;0", fmt.Sprintf("%016X", addr))
}

// FuncName formats a record or symbol name in yellow.
func FuncName(name string) string { return paint("255;200;0", name) }

// Detail formats secondary text in light gray.
func Detail(s string) string { return paint("180;180;180", s) }

// HexBytes formats opcode bytes in light gray.
func HexBytes(s string) string { return paint("180;180;180", s) }

// Border formats separators in dark gray.
func Border(s string) string { return paint("80;80;80", s) }

// Comment formats trailing comments in white.
func Comment(s string) string { return paint("255;255;255", s) }

// Header formats headings in blue.
func Header(s string) string { return paint("86;156;214", s) }

// Error formats errors in pink.
func Error(s string) string { return paint("255;128;192", s) }

// Pattern formats signature text in green.
func Pattern(s string) string { return paint("0;255;0", s) }

// bytesCol is wide enough for the longest x86 instruction (15 bytes).
const bytesCol = 15*3 + 1

// Line renders one disassembly line: address, opcode bytes, instruction and
// an optional comment. Padding is computed on the uncolored text.
func Line(addr uint64, code []byte, insn, comment string) string {
	var b strings.Builder
	b.Grow(160)
	b.WriteString(Address(addr))
	b.WriteString("  ")

	hex := make([]string, len(code))
	for i, c := range code {
		hex[i] = fmt.Sprintf("%02X", c)
	}
	raw := strings.Join(hex, " ")
	b.WriteString(HexBytes(raw))
	b.WriteString(strings.Repeat(" ", max(1, bytesCol-len(raw))))

	b.WriteString(Instruction(insn))
	if comment != "" {
		const insnCol = 40
		b.WriteString(strings.Repeat(" ", max(1, insnCol-len(insn))))
		b.WriteString(Comment("; " + comment))
	}
	return b.String()
}
