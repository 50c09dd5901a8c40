// troughsh is an interactive shell for the trough server: it forwards
// call/get/set/ctrl commands over one connection and prints the shaped
// results. With a TTY it offers line editing and persistent history;
// otherwise it reads plain lines from stdin.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"

	"github.com/danmuck/troughctl/internal/logging"
	"github.com/danmuck/troughctl/internal/trough"
)

const (
	defaultAddr     = "localhost:9898"
	historyFileName = ".troughsh_history"
	historySize     = 500
)

func main() {
	logging.ConfigureRuntime()

	addr := defaultAddr
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	client, err := trough.Dial(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "troughsh: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	readLine, closeInput := newLineReader()
	defer closeInput()

	for {
		line, err := readLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				fmt.Println()
				return
			}
			fmt.Fprintf(os.Stderr, "troughsh: %v\n", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		if err := dispatch(client, line); err != nil {
			var connErr *trough.ConnectionError
			if errors.As(err, &connErr) {
				fmt.Fprintf(os.Stderr, "troughsh: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// dispatch parses one shell line and runs it against the client.
func dispatch(client *trough.Client, line string) error {
	parts := strings.Fields(line)
	verb := strings.ToLower(parts[0])
	args := parts[1:]

	switch verb {
	case "call":
		if len(args) < 1 {
			return errors.New("usage: call <Method> [args...]")
		}
		callArgs := make([]any, len(args)-1)
		for i, a := range args[1:] {
			callArgs[i] = a
		}
		fields, err := client.Call(args[0], callArgs...)
		if err != nil {
			return err
		}
		printFields(fields)
		return nil

	case "get":
		if len(args) != 1 {
			return errors.New("usage: get <Property>")
		}
		v, err := client.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil

	case "set":
		if len(args) != 2 {
			return errors.New("usage: set <Property> <value>")
		}
		return client.Set(args[0], args[1])

	case "ctrl":
		if len(args) != 2 {
			return errors.New("usage: ctrl <name> <value>")
		}
		fields, err := client.Ctrl(args[0], args[1])
		if err != nil {
			return err
		}
		printFields(fields)
		return nil

	default:
		return fmt.Errorf("unknown command %q (call, get, set, ctrl, quit)", verb)
	}
}

func printFields(fields trough.Fields) {
	if len(fields) == 0 {
		fmt.Println("ok")
		return
	}
	fmt.Println(fields)
}

// newLineReader picks the input mode: readline with history on a TTY,
// plain buffered reads otherwise.
func newLineReader() (func() (string, error), func()) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		rl, err := readline.NewFromConfig(&readline.Config{
			Prompt:       "trough> ",
			HistoryFile:  historyPath(),
			HistoryLimit: historySize,
		})
		if err == nil {
			return rl.Readline, func() { _ = rl.Close() }
		}
		fmt.Fprintf(os.Stderr, "troughsh: readline init failed (%v), using basic input\n", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	readLine := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return scanner.Text(), nil
	}
	return readLine, func() {}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFileName)
}
