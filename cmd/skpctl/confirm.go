package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/skp-companion/internal/service"
)

// promptConfirmer asks on the terminal. Anything but y or yes declines.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) Confirm(_ context.Context, prompt service.ConfirmationPrompt) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt.Message)
	answer, err := p.in.ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func confirmerFor(assumeYes bool, in io.Reader, out io.Writer) service.Confirmer {
	if assumeYes {
		return service.AlwaysConfirm
	}
	return newPromptConfirmer(in, out)
}
