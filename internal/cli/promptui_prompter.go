package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/manifoldco/promptui/list"
)

// menuSize is the number of snapshot labels visible at once.
const menuSize = 10

var snapshotMenuTemplates = &promptui.SelectTemplates{
	Label:    "{{ . }}:",
	Active:   "▸ {{ . | cyan }}",
	Inactive: "  {{ . }}",
	Selected: "✔ {{ . | faint }}",
}

// PromptUI implements Prompter with promptui menus on a terminal.
type PromptUI struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewPromptUI prompts on the process stdin and stdout.
func NewPromptUI() *PromptUI {
	return NewPromptUIWithIO(nil, nil)
}

// NewPromptUIWithIO uses the given streams; nil keeps the process stdin or stdout.
func NewPromptUIWithIO(stdin io.Reader, stdout io.Writer) *PromptUI {
	pu := &PromptUI{stdin: os.Stdin, stdout: os.Stdout}
	if stdin != nil {
		pu.stdin = toReadCloser(stdin)
	}
	if stdout != nil {
		pu.stdout = toWriteCloser(stdout)
	}
	return pu
}

// Select shows a searchable menu of snapshot labels with the cursor on defaultValue.
func (p *PromptUI) Select(label string, items []string, defaultValue string) (int, string, error) {
	menu := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: snapshotMenuTemplates,
		Size:      menuSize,
		HideHelp:  len(items) <= menuSize,
		Searcher:  labelSearcher(items),
		CursorPos: indexOf(items, defaultValue),
		Stdin:     p.stdin,
		Stdout:    p.stdout,
	}
	idx, value, err := menu.Run()
	if err != nil {
		return idx, value, cancelled(err)
	}
	return idx, value, nil
}

// Prompt reads a line of free text, such as a new snapshot label.
func (p *PromptUI) Prompt(label string) (string, error) {
	input := promptui.Prompt{
		Label:  label,
		Stdin:  p.stdin,
		Stdout: p.stdout,
	}
	value, err := input.Run()
	if err != nil {
		return "", cancelled(err)
	}
	return value, nil
}

// Confirm asks a yes or no question; promptui appends the [y/N] hint.
func (p *PromptUI) Confirm(label string, defaultYes bool) (bool, error) {
	def := "N"
	if defaultYes {
		def = "Y"
	}
	question := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   def,
		Stdin:     p.stdin,
		Stdout:    p.stdout,
	}
	result, err := question.Run()
	return confirmAnswer(result, err, defaultYes)
}

// confirmAnswer maps a promptui confirmation result to a decision. promptui
// reports a "no" answer as ErrAbort, which is an answer and not a cancellation.
func confirmAnswer(result string, err error, defaultYes bool) (bool, error) {
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, cancelled(err)
	}
	return strings.EqualFold(result, "y") || (result == "" && defaultYes), nil
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %v", ErrPromptCancelled, err)
}

// indexOf returns the position of value in items, or 0 when it is absent.
func indexOf(items []string, value string) int {
	if value == "" {
		return 0
	}
	for i, item := range items {
		if item == value {
			return i
		}
	}
	return 0
}

// labelSearcher filters snapshot labels by a case-insensitive substring.
func labelSearcher(items []string) list.Searcher {
	return func(input string, index int) bool {
		needle := strings.ToLower(strings.TrimSpace(input))
		return strings.Contains(strings.ToLower(items[index]), needle)
	}
}

func toReadCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

func toWriteCloser(w io.Writer) io.WriteCloser {
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}
	return nopWriteCloser{Writer: w}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
