// seax parses, compiles, and runs a small Scheme-like language on a
// register-machine interpreter, either one expression at a time from the
// command line or interactively from a REPL.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/hawkw/seax/ast"
	"github.com/hawkw/seax/compiler"
	"github.com/hawkw/seax/lexer"
	"github.com/hawkw/seax/parser"
	"github.com/hawkw/seax/repl"
	"github.com/hawkw/seax/vm"
)

const version = "0.1.0"

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `seax v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    seax compiles S-expressions into SECD-machine instructions and runs them
    on a four-register SECD interpreter. Without any flags, it starts an
    interactive REPL (Read-Eval-Print-Loop).

OPTIONS:
    -f, --file <path>       Execute a source file
    -e, --eval <code>       Evaluate an expression and print the result
    -d, --debug             Enable debug mode with more verbose diagnostics
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Start interactive REPL
    %s

    # Execute a script file
    %s -f script.scm
    %s --file script.scm

    # Evaluate an expression
    %s -e "(+ 1 2)"
    %s --eval "((lambda (x y) (+ x y)) 2 3)"

    # Execute with debug mode
    %s -f script.scm -d

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Execute a source file")
	evalFlag := flag.String("eval", "", "Evaluate an expression and print the result")
	debugFlag := flag.Bool("debug", false, "Enable debug mode with more verbose diagnostics")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(fileFlag, "f", "", "Execute a source file")
	flag.StringVar(evalFlag, "e", "", "Evaluate an expression and print the result")
	flag.BoolVar(debugFlag, "d", false, "Enable debug mode with more verbose diagnostics")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("seax v%s\n", version)
		return
	}

	if *fileFlag != "" {
		executeFile(*fileFlag, *debugFlag)
		return
	}

	if *evalFlag != "" {
		evaluateExpression(*evalFlag, *debugFlag)
		return
	}

	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	repl.Start(username, repl.Options{Debug: *debugFlag})
}

// run parses src, compiles and runs each top-level expression in sequence,
// and returns the display form of the final expression's result cell (""
// when its stack is empty). Each top-level expression
// runs to completion before the next is compiled, so an earlier definition
// is not yet visible to a later one; [compiler.Compiler] carries no state
// across Compile calls.
func run(src string, debug bool) (string, error) {
	l := lexer.New(src)
	p := parser.New(l)
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		return "", parseError(errs)
	}

	var last string
	for _, expr := range root.Exprs {
		out, err := compileAndRun(expr, debug)
		if err != nil {
			return "", err
		}
		last = out
	}
	return last, nil
}

func compileAndRun(expr ast.Node, debug bool) (string, error) {
	comp := compiler.New()
	cells, err := comp.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("compile error: %w", err)
	}

	program := compiler.ToControl(cells)
	stack, err := vm.Run(program, debug, os.Stdin, os.Stdout)
	if err != nil {
		return "", err
	}

	top, ok := stack.Peek()
	if !ok {
		return "", nil
	}
	return top.String(), nil
}

type parseErrors []string

func (e parseErrors) Error() string {
	msg := "parser errors:"
	for _, m := range e {
		msg += "\n\t" + m
	}
	return msg
}

func parseError(errs []string) error {
	return parseErrors(errs)
}

// executeFile reads and executes a source file
func executeFile(filename string, debug bool) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		fmt.Printf("Error getting absolute path: %s\n", err)
		os.Exit(1)
	}

	//nolint:gosec // the path comes from a trusted CLI flag, not untrusted input
	content, err := os.ReadFile(absolute)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	out, err := run(string(content), debug)
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
	if out != "" {
		fmt.Println(out)
	}
}

// evaluateExpression evaluates a single expression
func evaluateExpression(expr string, debug bool) {
	out, err := run(expr, debug)
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
	fmt.Println(out)
}

func reportError(err error) {
	if f, ok := err.(*vm.Fault); ok {
		_, _ = fmt.Fprintln(os.Stderr, "VM error:", f.Error())
		if f.Before != nil {
			_, _ = fmt.Fprintf(os.Stderr, "  stack: %v\n", f.Before.S)
			_, _ = fmt.Fprintf(os.Stderr, "  env:   %v\n", f.Before.E)
		}
		if f.Closure != nil {
			_, _ = fmt.Fprintf(os.Stderr, "  in closure %s\n", f.Closure.ID())
		}
		return
	}
	_, _ = fmt.Fprintln(os.Stderr, err)
}
