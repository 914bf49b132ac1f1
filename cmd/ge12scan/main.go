// ge12scan verifies the fix plugin off-target. The root command scans a
// game executable for every code signature the fixes hook and prints the
// matches with disassembled context. The check subcommand executes a
// generated mid-hook stub under Unicorn and verifies the register capture
// and restore sequence instruction by instruction.
package main

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"github.com/Binject/debug/pe"
	"github.com/spf13/cobra"
	"golang.org/x/arch/x86/x86asm"

	"github.com/PolarWizard/GodEater1-2Fix/internal/emulator"
	"github.com/PolarWizard/GodEater1-2Fix/internal/fixes"
	"github.com/PolarWizard/GodEater1-2Fix/internal/hook"
	"github.com/PolarWizard/GodEater1-2Fix/internal/sigscan"
	"github.com/PolarWizard/GodEater1-2Fix/internal/ui/colorize"
)

var contextInsns int

func main() {
	rootCmd := &cobra.Command{
		Use:   "ge12scan <game.exe>",
		Short: "Scan a GOD EATER RESURRECTION / 2 Rage Burst executable for fix signatures",
		Long: `ge12scan locates the code sites the fix plugin patches at runtime.

It parses the executable's PE headers, scans the .text section for each
fix's byte signature and prints the matched virtual addresses with
disassembled context. A signature that stops matching after a game update
shows up here before anyone has to debug a live process.

Examples:
  ge12scan "GOD EATER RESURRECTION.exe"    # Scan for all fix signatures
  ge12scan game.exe -n 8                   # Wider disassembly context
  ge12scan check                           # Verify hook stub generation`,
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE:                  runScan,
	}
	rootCmd.Flags().IntVarP(&contextInsns, "num", "n", 4, "instructions of context around each match")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Execute a generated hook stub under emulation and verify it",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
	rootCmd.AddCommand(checkCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// textSection returns the executable code section, its image base and the
// virtual address the section maps at.
func textSection(path string) (code []byte, va uint64, err error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("parse PE: %w", err)
	}
	defer f.Close()

	var imageBase uint64
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		return nil, 0, fmt.Errorf("%s is a 64-bit image; the fixes target 32-bit builds", path)
	default:
		return nil, 0, fmt.Errorf("no optional header in %s", path)
	}

	for _, s := range f.Sections {
		if s.Name != ".text" {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, 0, fmt.Errorf("read .text: %w", err)
		}
		return data, imageBase + uint64(s.VirtualAddress), nil
	}
	return nil, 0, fmt.Errorf("no .text section in %s", path)
}

func runScan(cmd *cobra.Command, args []string) error {
	code, va, err := textSection(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s ge12scan ─ fix signature scanner\n", colorize.Header("▶"))
	fmt.Printf("  %s %s\n", colorize.Detail("Image:"), args[0])
	fmt.Printf("  %s %s  %s %d bytes\n\n",
		colorize.Detail(".text:"), colorize.Address(va),
		colorize.Detail("size:"), len(code))

	missing := 0
	for _, ns := range fixes.Signatures() {
		off, err := sigscan.Scan(code, ns.Sig)
		if err != nil {
			fmt.Printf("%s %-14s %s\n", colorize.Miss("✗"), ns.Name,
				colorize.Detail("signature not found"))
			missing++
			continue
		}
		addr := va + uint64(off)
		fmt.Printf("%s %-14s %s\n", colorize.Match("✓"), ns.Name, colorize.Address(addr))
		printContext(code, va, off)
		fmt.Println()
	}

	fmt.Print(colorize.Border("───────────────────────────────────────── "))
	total := len(fixes.Signatures())
	fmt.Printf("%d/%d signatures matched\n", total-missing, total)
	if missing > 0 {
		return fmt.Errorf("%d signature(s) missing", missing)
	}
	return nil
}

// printContext disassembles a few instructions starting at the hook site.
func printContext(code []byte, va uint64, off int) {
	pos := off
	for i := 0; i < contextInsns && pos < len(code); i++ {
		inst, err := x86asm.Decode(code[pos:], 32)
		if err != nil {
			break
		}
		addr := va + uint64(pos)
		raw := strings.ToUpper(fmt.Sprintf("% x", code[pos:pos+inst.Len]))
		dis := x86asm.IntelSyntax(inst, addr, nil)
		fmt.Printf("    %s  %-30s %s\n",
			colorize.Address(addr), colorize.HexBytes(raw), colorize.Instruction(dis))
		pos += inst.Len
	}
}

// Scaffolding layout for the stub check, all inside the emulator's code
// region.
const (
	checkSite     = emulator.CodeBase + 0x1000 // pretend hook site
	checkStub     = emulator.CodeBase + 0x2000 // generated stub
	checkCallback = emulator.CodeBase + 0x3000 // hand-written callback
)

// checkCallbackCode is the callback the stub invokes, written directly in
// machine code so the whole round trip runs under emulation:
//
//	mov eax, [esp+4]              ; frame pointer argument
//	mov dword [eax+4], 0x11223344 ; overwrite the ecx slot
//	ret 4                         ; stdcall
var checkCallbackCode = []byte{
	0x8B, 0x44, 0x24, 0x04,
	0xC7, 0x40, 0x04, 0x44, 0x33, 0x22, 0x11,
	0xC2, 0x04, 0x00,
}

func runCheck(cmd *cobra.Command, args []string) error {
	// The displaced instructions a real install would relocate: the aspect
	// store signature's first instruction padded to the redirect length.
	displaced := []byte{0xF3, 0x0F, 0x11, 0x05, 0x00, 0x40, 0x40, 0x00}
	n, err := hook.PatchLen(displaced)
	if err != nil {
		return fmt.Errorf("patch length: %w", err)
	}
	displaced = displaced[:n]

	returnTo := uint32(checkSite) + uint32(n)
	stub := hook.EmitMidStub(checkStub, checkCallback, displaced, returnTo)

	emu, err := emulator.New()
	if err != nil {
		return err
	}
	defer emu.Close()

	if err := emu.MemWrite(checkStub, stub); err != nil {
		return err
	}
	if err := emu.MemWrite(checkCallback, checkCallbackCode); err != nil {
		return err
	}

	// Recognizable register file; esp stays wherever the emulator parked it.
	seed := [8]uint32{
		0x11110000, 0x22220000, 0x33330000, 0x44440000,
		0, 0x55550000, 0x66660000, 0x77770000,
	}
	if err := emu.SetGP(seed); err != nil {
		return err
	}
	before, err := emu.GP()
	if err != nil {
		return err
	}

	if err := emu.Run(checkStub, uint64(returnTo)); err != nil {
		return fmt.Errorf("stub execution: %w", err)
	}

	after, err := emu.GP()
	if err != nil {
		return err
	}

	names := []string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}
	want := before
	want[1] = 0x11223344 // the callback rewrote the ecx slot
	failed := 0
	for i, name := range names {
		if after[i] != want[i] {
			fmt.Printf("%s %s: %08X, want %08X\n",
				colorize.Miss("✗"), name, after[i], want[i])
			failed++
			continue
		}
		fmt.Printf("%s %s: %08X\n", colorize.Match("✓"), name, after[i])
	}

	fmt.Printf("\n%s stub size %d bytes, context frame %d bytes\n",
		colorize.Detail("·"), len(stub), unsafe.Sizeof(hook.Context{}))
	if failed > 0 {
		return fmt.Errorf("%d register(s) corrupted by the stub", failed)
	}
	fmt.Printf("%s register capture and restore verified under emulation\n", colorize.Match("✓"))
	return nil
}
