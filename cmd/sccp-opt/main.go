// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
	"golang.org/x/term"

	"sccp-opt/internal/ir"
	"sccp-opt/internal/irtext"
	"sccp-opt/internal/pass"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sccp-opt <file.ir> [-skip-verify] [-v]")
		os.Exit(1)
	}

	path := os.Args[1]
	cfg := pass.DefaultConfig()
	for _, flag := range os.Args[2:] {
		switch flag {
		case "-skip-verify":
			cfg.SkipVerification = true
		case "-v":
			cfg.Verbose = true
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	parsed, err := irtext.ParseString(path, string(source))
	if err != nil {
		reportParseError(string(source), err)
		os.Exit(1)
	}

	program, err := irtext.Build(path, parsed)
	if err != nil {
		color.Red("failed to build IR: %s", err)
		os.Exit(1)
	}

	color.Cyan("--- before ---")
	fmt.Println(ir.Print(program))

	driver := pass.NewDriver(cfg)
	outcomes := driver.RunProgram(program)

	color.Cyan("--- after ---")
	fmt.Println(ir.Print(program))

	printSummary(program, outcomes, driver.Stats())
}

func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("-> %s\n", pe.Message())
}

// printSummary renders a per-function statistics table, padding columns by
// display width rather than byte length so function names containing wide
// runes still line up in a real terminal.
func printSummary(program *ir.Program, outcomes []pass.PassOutcome, stats *pass.Stats) {
	color.Cyan("--- run %s ---", stats.RunID)

	nameWidth := len("function")
	for _, fn := range program.Functions {
		if w := displayWidth(fn.Name); w > nameWidth {
			nameWidth = w
		}
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	header := padRight("function", nameWidth) + "  folded  branches  pruned  status"
	fmt.Println(header)

	for i, fn := range program.Functions {
		if i >= len(outcomes) {
			break
		}
		o := outcomes[i]
		status := "ok"
		if o.RolledBack {
			status = "rolled back"
		} else if len(o.Errors) > 0 {
			status = "errors"
		}
		line := fmt.Sprintf("%s  %6d  %8d  %6d  %s",
			padRight(fn.Name, nameWidth), o.ValuesFolded, o.BranchesFolded, o.BlocksPruned, status)
		if isTTY && o.RolledBack {
			color.Red(line)
		} else {
			fmt.Println(line)
		}
	}

	fmt.Printf("\n%d function(s) processed, %d changed, %d rolled back\n",
		stats.FunctionsProcessed, stats.FunctionsChanged, stats.RollbacksTotal)
}

func displayWidth(s string) int {
	width := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		width += runewidth.StringWidth(gr.Str())
	}
	return width
}

func padRight(s string, width int) string {
	pad := width - displayWidth(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}
