package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

// ErrAborted is returned when input ends before an answer was given.
var ErrAborted = errors.New("aborted")

// Prompter asks questions on out and reads answers from in. Passwords are
// read without echo when in is a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  uintptr
	tty bool
}

// NewPrompter wraps in and out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		p.fd, p.tty = f.Fd(), true
	}
	return p
}

// Line prints label and returns the trimmed answer.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password prints label and reads a secret.
func (p *Prompter) Password(label string) (string, error) {
	if !p.tty {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Confirm asks a yes/no question. Only "y" and "yes" count as yes.
func (p *Prompter) Confirm(label string) (bool, error) {
	ans, err := p.Line(label + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Credentials asks for whatever of username and password is missing.
func (p *Prompter) Credentials(username, password string) (string, string, error) {
	var err error
	for username == "" {
		if username, err = p.Line("Username: "); err != nil {
			return "", "", err
		}
	}
	for password == "" {
		if password, err = p.Password("Password: "); err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}
