// Package colorize provides syntax highlighting for the scan tool's
// disassembly output.
package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

func init() {
	// Register our custom disassembly style on package initialization
	_ = DisasmDark
}

// DisasmDark is a custom style for disassembly - IDA Pro style
var DisasmDark = styles.Register(chroma.MustNewStyle("disasm-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",    // White default
	chroma.Background:     "bg:#000000", // Pure black background
	chroma.Comment:        "#FF8000",    // Orange comments
	chroma.CommentPreproc: "#FF8000",

	// For NASM lexer mappings
	chroma.Keyword:       "#FFFFFF", // Instructions in white
	chroma.KeywordPseudo: "#FFFFFF",
	chroma.Name:          "#87CEEB", // Registers in cyan
	chroma.NameBuiltin:   "#87CEEB",
	chroma.NameVariable:  "#87CEEB",

	// Numbers - pink like IDA
	chroma.LiteralNumber:        "#FF80C0",
	chroma.LiteralNumberHex:     "#FF80C0",
	chroma.LiteralNumberBin:     "#FF80C0",
	chroma.LiteralNumberOct:     "#FF80C0",
	chroma.LiteralNumberInteger: "#FF80C0",
	chroma.LiteralNumberFloat:   "#FF80C0",

	// Labels and symbols
	chroma.NameLabel:    "#FFC800", // Labels in yellow
	chroma.NameFunction: "#FFFFFF",

	// Operators and punctuation
	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",

	// Strings
	chroma.String: "#00FF00",
}))
