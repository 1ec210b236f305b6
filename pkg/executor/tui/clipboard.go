package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

var (
	clipboardWriteAll   = clipboard.WriteAll
	clipboardWriteOSC52 = writeOSC52
)

// copyText tries the system clipboard, then an OSC52 escape to the terminal.
func copyText(text string) error {
	sysErr := clipboardWriteAll(text)
	if sysErr == nil {
		return nil
	}
	if oscErr := clipboardWriteOSC52(text); oscErr != nil {
		return fmt.Errorf("system clipboard: %v; osc52: %w", sysErr, oscErr)
	}
	return nil
}

func writeOSC52(text string) error {
	term := strings.TrimSpace(os.Getenv("TERM"))
	if term == "" || strings.EqualFold(term, "dumb") {
		return errors.New("terminal does not support OSC52")
	}
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open /dev/tty: %w", err)
	}
	defer tty.Close()

	seq := osc52.New(text)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(strings.ToLower(term), "screen"):
		seq = seq.Screen()
	}
	_, err = seq.WriteTo(tty)
	return err
}
