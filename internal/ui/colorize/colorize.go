package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// Label styles, IDA-ish palette.
var (
	addressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC800"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B4B4B4"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#569CD6"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#505050"))
	matchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5050"))
	hexStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B4B4B4"))
)

// getAssemblyLexer returns an appropriate assembly lexer with fallbacks
func getAssemblyLexer() chroma.Lexer {
	candidates := []string{"nasm", "gas", "GAS", "Gas"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	candidates := []string{"disasm-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// IsDisabled returns true if colors are disabled via environment
func IsDisabled() bool {
	return os.Getenv("GE12SCAN_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

// Instruction colorizes an x86 assembly instruction using Chroma
func Instruction(insn string) string {
	if IsDisabled() {
		return insn
	}

	lexer := getAssemblyLexer()
	if lexer == nil {
		return insn
	}

	_ = DisasmDark // Force registration
	style := getDisasmStyle()
	formatter := getTerminalFormatter()

	iterator, err := lexer.Tokenise(nil, insn)
	if err != nil {
		return insn
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return insn
	}

	return strings.TrimSuffix(buf.String(), "\n")
}

// Address formats a virtual address in yellow
func Address(addr uint64) string {
	s := fmt.Sprintf("%08X", addr)
	if IsDisabled() {
		return s
	}
	return addressStyle.Render(s)
}

// Detail formats detail text in light gray
func Detail(s string) string {
	if IsDisabled() {
		return s
	}
	return detailStyle.Render(s)
}

// Header formats header text in blue
func Header(s string) string {
	if IsDisabled() {
		return s
	}
	return headerStyle.Render(s)
}

// Border formats border characters in dark gray
func Border(s string) string {
	if IsDisabled() {
		return s
	}
	return borderStyle.Render(s)
}

// Match formats a found-signature marker in green
func Match(s string) string {
	if IsDisabled() {
		return s
	}
	return matchStyle.Render(s)
}

// Miss formats a missing-signature marker in red
func Miss(s string) string {
	if IsDisabled() {
		return s
	}
	return missStyle.Render(s)
}

// HexBytes formats hex opcode bytes in light gray
func HexBytes(s string) string {
	if IsDisabled() {
		return s
	}
	return hexStyle.Render(s)
}
