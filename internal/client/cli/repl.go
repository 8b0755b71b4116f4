package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Books(ctx context.Context) error
	Search(ctx context.Context) error
	Copies(ctx context.Context) error
	Borrow(ctx context.Context) error
	Return(ctx context.Context) error
	Extend(ctx context.Context) error
	Current(ctx context.Context) error
	History(ctx context.Context) error
	Fines(ctx context.Context) error
	PayFine(ctx context.Context) error
	AddBook(ctx context.Context) error
	AddCopy(ctx context.Context) error
	Users(ctx context.Context) error
	Records(ctx context.Context) error
	MarkLost(ctx context.Context) error
	MarkDamaged(ctx context.Context) error
	ForceReturn(ctx context.Context) error
	WaiveFine(ctx context.Context) error
	Sweep(ctx context.Context) error
	Stats(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("lib> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			printHelp(a)

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "b", "books":
			_ = a.Books(ctx)

		case "search":
			_ = a.Search(ctx)

		case "copies":
			_ = a.Copies(ctx)

		case "borrow":
			_ = a.Borrow(ctx)

		case "return":
			_ = a.Return(ctx)

		case "extend":
			_ = a.Extend(ctx)

		case "current":
			_ = a.Current(ctx)

		case "history":
			_ = a.History(ctx)

		case "fines":
			_ = a.Fines(ctx)

		case "pay":
			_ = a.PayFine(ctx)

		case "addbook":
			_ = a.AddBook(ctx)

		case "addcopy":
			_ = a.AddCopy(ctx)

		case "users":
			_ = a.Users(ctx)

		case "records":
			_ = a.Records(ctx)

		case "marklost":
			_ = a.MarkLost(ctx)

		case "markdamaged":
			_ = a.MarkDamaged(ctx)

		case "forcereturn":
			_ = a.ForceReturn(ctx)

		case "waive":
			_ = a.WaiveFine(ctx)

		case "sweep":
			_ = a.Sweep(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func printHelp(a execIface) {
	if !a.isLoggedIn() {
		printlnFn("Available commands: register, login, exit")
		return
	}
	printlnFn("Available commands: (b)ooks, search, copies, borrow, return, extend, current, history, fines, pay, logout, exit")
	if a.isAdmin() {
		printlnFn("Admin commands: addbook, addcopy, users, records, marklost, markdamaged, forcereturn, waive, sweep, stats")
	}
}
