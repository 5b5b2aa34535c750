package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"ember/compiler"
	"ember/heap"
	"ember/lexer"
	"ember/parser"
	"ember/token"
	"ember/vm"
)

// replCmd starts an interactive session, re-using one VM and heap
// across inputs so definitions accumulate the way a script's globals
// would. Line editing and history come from chzyer/readline, following
// the teacher's REPL but swapping its bufio.Scanner for a real
// readline so arrow-key history and multi-line continuation work at a
// terminal.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive ember session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive ember REPL.
`
}
func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("ember")

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = home + "/.ember_history"
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to start readline: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	h := heap.New()
	machine := vm.New(h)

	var buffer strings.Builder
	pathID := 0

	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", err)
			return subcommands.ExitFailure
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		lex := lexer.New(source)
		tokens, lexErr := lex.Scan()
		if lexErr != nil {
			fmt.Println(lexErr)
			buffer.Reset()
			continue
		}

		if !isInputReady(tokens) {
			continue
		}

		p := parser.New(tokens)
		exprs, parseErr := p.Parse()
		if parseErr != nil {
			if isAtEOF(parseErr, tokens[len(tokens)-1]) {
				continue
			}
			fmt.Println(parseErr)
			buffer.Reset()
			continue
		}

		pathID++
		c := compiler.New(pathID)
		slice, compileErr := c.Compile(exprs)
		if compileErr != nil {
			fmt.Println(compileErr)
			buffer.Reset()
			continue
		}

		if runErr := machine.Run(slice); runErr != nil {
			fmt.Println(runErr)
		}
		buffer.Reset()
	}
}

// isInputReady reports whether tokens form a complete expression, so
// the REPL knows to keep reading more lines for an unfinished block
// such as "if cond {".
func isInputReady(tokens []token.Token) bool {
	braceBalance, parenBalance, brackBalance := 0, 0, 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LCUR:
			braceBalance++
		case token.RCUR:
			braceBalance--
		case token.LPA:
			parenBalance++
		case token.RPA:
			parenBalance--
		case token.LBRK:
			brackBalance++
		case token.RBRK:
			brackBalance--
		}
	}
	return braceBalance <= 0 && parenBalance <= 0 && brackBalance <= 0
}

// isAtEOF reports whether err is a parser.SyntaxError pointing at the
// EOF token, meaning the user simply hasn't finished typing.
func isAtEOF(err error, eof token.Token) bool {
	syntaxErr, ok := err.(parser.SyntaxError)
	if !ok {
		return false
	}
	return syntaxErr.Line == eof.Line && syntaxErr.Column == eof.Column
}
