// Command weevil is the interactive front-end driving the debugger
// engine, grounded on the original's kafer-core/src/main.rs command set.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/saferwall/weevil/debugger"
	"github.com/saferwall/weevil/internal/xlog"
)

func main() {
	root := &cobra.Command{
		Use:   "weevil <program> [args...]",
		Short: "A user-mode x86-64 debugger for Windows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1:])
		},
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(program string, args []string) error {
	log := xlog.NewHelper(xlog.NewFilter(xlog.NewStdLogger(os.Stderr), xlog.LevelWarn))

	dbg, err := debugger.Launch(program, args, log)
	if err != nil {
		return err
	}
	defer dbg.Close()

	rl, err := readline.New("weevil> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	warn := color.New(color.FgYellow).SprintFunc()
	hit := color.New(color.FgRed, color.Bold).SprintFunc()
	info := color.New(color.FgCyan).SprintFunc()

	for {
		ev, err := dbg.PullEvent()
		if err != nil {
			return err
		}

		printEvent(ev, hit, info)

		if ev.Kind() == debugger.KindExitProcess {
			ev.Release()
			return nil
		}

		cont := false
		for !cont {
			line, err := rl.Readline()
			if err != nil {
				ev.Release()
				return nil
			}
			cont = handleCommand(dbg, ev, strings.TrimSpace(line), warn)
		}

		if err := ev.Release(); err != nil {
			fmt.Fprintln(os.Stderr, warn(err))
		}
	}
}

func printEvent(ev *debugger.DebugEvent, hit, info func(...interface{}) string) {
	switch ev.Kind() {
	case debugger.KindException:
		kind, code, addr, bpID := ev.ExceptionInfo()
		if kind == debugger.ExceptionBreakpointHit {
			fmt.Println(hit(fmt.Sprintf("breakpoint %d hit at 0x%x", bpID, addr)))
		} else {
			fmt.Println(hit(fmt.Sprintf("exception %v at 0x%x", code, addr)))
		}
	case debugger.KindLoadDll, debugger.KindUnloadDll, debugger.KindCreateProcess:
		fmt.Println(info(ev.Kind().String()))
	default:
		fmt.Println(ev.Kind())
	}
}

// handleCommand runs one REPL command line and reports whether the
// debuggee should be resumed (true) or the prompt should loop again
// (false), following the original's command dispatch in main.rs.
func handleCommand(dbg *debugger.Debugger, ev *debugger.DebugEvent, line string, warn func(...interface{}) string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true // empty line: continue, like the original
	}

	switch fields[0] {
	case "q":
		os.Exit(0)
	case "reg":
		fmt.Print(ev.Registers().Print())
	case "s":
		ev.StepInto()
		return true
	case "n", "c":
		return true
	case "read":
		if len(fields) < 2 {
			fmt.Println(warn("usage: read <addr>"))
			return false
		}
		addr, err := parseAddr(dbg, ev, fields[1])
		if err != nil {
			fmt.Println(warn(err))
			return false
		}
		buf := make([]byte, 16)
		if err := ev.ReadMemory(addr, buf); err != nil {
			fmt.Println(warn(err))
			return false
		}
		fmt.Printf("% x\n", buf)
	case "listmodules":
		for _, name := range dbg.ModuleNames() {
			fmt.Println(name)
		}
	case "k":
		frames, err := ev.StackFrames()
		if err != nil {
			fmt.Println(warn(err))
		}
		for _, f := range frames {
			name, err := ev.LookUpSymbol(f.RIP)
			if err != nil {
				fmt.Printf("0x%016x\n", f.RIP)
			} else {
				fmt.Printf("0x%016x %s\n", f.RIP, name)
			}
		}
	case "bp":
		if len(fields) == 1 {
			for _, b := range ev.Breakpoints() {
				fmt.Printf("%d: 0x%x\n", b.ID, b.Addr)
			}
			return false
		}
		addr, err := parseAddr(dbg, ev, fields[1])
		if err != nil {
			fmt.Println(warn(err))
			return false
		}
		id, err := ev.AddBreakpoint(addr)
		if err != nil {
			fmt.Println(warn(err))
			return false
		}
		fmt.Printf("breakpoint %d set at 0x%x\n", id, addr)
	case "clbp":
		if len(fields) < 2 {
			fmt.Println(warn("usage: clbp <id>"))
			return false
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println(warn(err))
			return false
		}
		if err := ev.ClearBreakpoint(id); err != nil {
			fmt.Println(warn(err))
		}
	default:
		fmt.Println(warn("unknown command: " + fields[0]))
	}
	return false
}

// parseAddr resolves "<addr>" in any of the forms the original's
// parse_addr accepts: "module!symbol", "@register", a "0x"-prefixed hex
// literal, or a decimal literal.
func parseAddr(dbg *debugger.Debugger, ev *debugger.DebugEvent, s string) (uint64, error) {
	switch {
	case strings.Contains(s, "!"):
		return ev.ResolveSymbol(s)
	case strings.HasPrefix(s, "@"):
		reg := strings.TrimPrefix(s, "@")
		v, ok := ev.Registers().Get(reg)
		if !ok {
			return 0, fmt.Errorf("unknown register %q", reg)
		}
		return v, nil
	case strings.HasPrefix(s, "0x"):
		return strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	default:
		return strconv.ParseUint(s, 10, 64)
	}
}
