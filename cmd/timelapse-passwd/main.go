package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minPasswordLength = 6

var bcryptCost = bcrypt.DefaultCost

// passwordReader reads one password without echoing it.
type passwordReader func() ([]byte, error)

func terminalReader() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func main() {
	os.Exit(run(os.Args[1:], terminalReader, os.Stdout, os.Stderr))
}

func run(args []string, read passwordReader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch command := args[0]; command {
	case "hash":
		hash, err := promptHash(read, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, hash)
	case "set":
		if len(args) != 2 {
			printUsage(stderr)
			return 1
		}
		hash, err := promptHash(read, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := updateConfigFile(args[1], hash); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Password updated in %s.\n", args[1])
		fmt.Fprintln(stdout, "Restart the timelapse server to apply it.")
	case "status":
		if len(args) != 2 {
			printUsage(stderr)
			return 1
		}
		state, err := passwordStatus(args[1])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Status: %s\n", state)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(stderr)
		return 1
	}
	return 0
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Timelapse Password Management")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: timelapse-passwd <command> [config.yaml]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  hash            - Print the bcrypt hash of a new password")
	fmt.Fprintln(w, "  set <file>      - Store a new password hash in the config file")
	fmt.Fprintln(w, "  status <file>   - Show how the password is configured")
}

// promptHash asks for a new password twice and returns its bcrypt hash.
func promptHash(read passwordReader, out io.Writer) (string, error) {
	fmt.Fprint(out, "New Password: ")
	password, err := read()
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(out, "Confirm Password: ")
	confirm, err := read()
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if !bytes.Equal(password, confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	return hashPassword(password)
}

func hashPassword(password []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(password, bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
