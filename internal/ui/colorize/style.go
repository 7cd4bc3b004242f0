// Package colorize provides terminal highlighting for mhwkit output.
package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// Palette used by DisasmDark.
const (
	ColorMnemonic = "#FFFFFF"
	ColorRegister = "#87CEEB"
	ColorNumber   = "#FF80C0"
	ColorLabel    = "#FFC800"
	ColorComment  = "#FF8000"
	ColorString   = "#00FF00"
)

// DisasmDark is a dark chroma style tuned for the NASM lexer.
var DisasmDark = styles.Register(chroma.MustNewStyle("mhwkit-disasm", chroma.StyleEntries{
	chroma.Text:           ColorMnemonic,
	chroma.Background:     "bg:#000000",
	chroma.Comment:        ColorComment,
	chroma.CommentPreproc: ColorComment,

	// NASM tokenises mnemonics as functions and registers as builtins.
	chroma.Keyword:       ColorMnemonic,
	chroma.KeywordPseudo: ColorMnemonic,
	chroma.KeywordType:   ColorMnemonic,
	chroma.NameFunction:  ColorMnemonic,
	chroma.Name:          ColorRegister,
	chroma.NameBuiltin:   ColorRegister,
	chroma.NameVariable:  ColorRegister,
	chroma.NameLabel:     ColorLabel,

	chroma.LiteralNumber:        ColorNumber,
	chroma.LiteralNumberHex:     ColorNumber,
	chroma.LiteralNumberBin:     ColorNumber,
	chroma.LiteralNumberOct:     ColorNumber,
	chroma.LiteralNumberInteger: ColorNumber,
	chroma.LiteralNumberFloat:   ColorNumber,

	chroma.Operator:    ColorMnemonic,
	chroma.Punctuation: ColorMnemonic,
	chroma.String:      ColorString,
}))
