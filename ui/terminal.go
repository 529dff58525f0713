package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/logrusorgru/aurora"
	runewidth "github.com/mattn/go-runewidth"
	indent "github.com/openconfig/goyang/pkg/indent"
	"golang.org/x/term"
)

const (
	indentUnit      = "  "
	sectionWidth    = 50
	promptPrefix    = "> "
	interpretPrefix = "→ "
)

// TerminalUI writes coloured output to stdout and reads stdin. Colours,
// spinners and hidden passphrase input are only used on a real terminal.
type TerminalUI struct {
	indentLevel int
	out         io.Writer
	in          *bufio.Reader
	inFd        int
	interactive bool
	au          aurora.Aurora
}

func NewTerminalUI() *TerminalUI {
	return NewTerminalUIWithColor(term.IsTerminal(int(os.Stdout.Fd())))
}

// NewTerminalUIWithColor is NewTerminalUI with colours forced on or off,
// for --no-color.
func NewTerminalUIWithColor(colors bool) *TerminalUI {
	fd := int(os.Stdin.Fd())
	return &TerminalUI{
		out:         os.Stdout,
		in:          bufio.NewReader(os.Stdin),
		inFd:        fd,
		interactive: term.IsTerminal(fd) && term.IsTerminal(int(os.Stdout.Fd())),
		au:          aurora.NewAurora(colors),
	}
}

func (u *TerminalUI) prefix() string {
	return strings.Repeat(indentUnit, u.indentLevel)
}

func (u *TerminalUI) writeLine(line string) {
	fmt.Fprintf(u.out, "%s%s\n", u.prefix(), line)
}

func (u *TerminalUI) Style(t StyledText) string {
	switch t.Severity {
	case SeveritySuccess:
		return u.au.Green(t.Text).String()
	case SeverityWarn:
		return u.au.Yellow(t.Text).String()
	case SeverityError:
		return u.au.Red(t.Text).String()
	case SeverityCritical:
		return u.au.Bold(t.Text).String()
	}
	return t.Text
}

func (u *TerminalUI) Info(format string, args ...any) {
	u.writeLine(fmt.Sprintf(format, args...))
}

func (u *TerminalUI) Success(format string, args ...any) {
	u.writeLine(u.au.Green(fmt.Sprintf(format, args...)).String())
}

func (u *TerminalUI) Warn(format string, args ...any) {
	u.writeLine(u.au.Yellow(fmt.Sprintf(format, args...)).String())
}

func (u *TerminalUI) Error(format string, args ...any) {
	u.writeLine(u.au.Red(fmt.Sprintf(format, args...)).String())
}

func (u *TerminalUI) Critical(format string, args ...any) {
	u.writeLine(u.au.Bold(fmt.Sprintf(format, args...)).String())
}

// Section prints
//
//	=============== Drug batch #3 ================
//
// with a blank line on each side.
func (u *TerminalUI) Section(title string) {
	titled := " " + title + " "
	bars := sectionWidth - runewidth.StringWidth(titled)
	if bars < 6 {
		bars = 6
	}
	left := bars / 2
	line := strings.Repeat("=", left) + titled + strings.Repeat("=", bars-left)
	fmt.Fprintf(u.out, "\n%s%s\n\n", u.prefix(), line)
}

func (u *TerminalUI) Interpret(value string) {
	fmt.Fprintf(u.out, "%s%s%s%s\n", u.prefix(), indentUnit, interpretPrefix, u.au.Cyan(value).String())
}

func (u *TerminalUI) readLine() string {
	text, _ := u.in.ReadString('\n')
	return strings.TrimRight(text, "\r\n")
}

func (u *TerminalUI) Ask(validate func(string) error) string {
	for {
		fmt.Fprintf(u.out, "%s%s", u.prefix(), promptPrefix)
		input := u.readLine()
		if validate == nil {
			return input
		}
		err := validate(input)
		if err == nil {
			return input
		}
		u.writeLine(u.au.Red(err.Error()).String())
	}
}

// Secret reads a passphrase. Off a terminal (piped input) the line is read
// as is.
func (u *TerminalUI) Secret(prompt string) string {
	fmt.Fprintf(u.out, "%s%s: ", u.prefix(), prompt)
	if !u.interactive {
		return u.readLine()
	}
	secret, err := term.ReadPassword(u.inFd)
	fmt.Fprintln(u.out)
	if err != nil {
		return ""
	}
	return string(secret)
}

func (u *TerminalUI) Confirm(prompt string, defaultYes bool) bool {
	options := "[Y/n]"
	if !defaultYes {
		options = "[y/N]"
	}
	u.Info("%s %s", prompt, options)
	input := u.Ask(func(s string) error {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "y", "yes", "n", "no":
			return nil
		}
		return fmt.Errorf("please enter y or n")
	})
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	}
	return false
}

func (u *TerminalUI) Choose(prompt string, options []string) int {
	for i, opt := range options {
		u.Info("%d. %s", i+1, opt)
	}
	u.Info("%s [1-%d]", prompt, len(options))
	input := u.Ask(func(s string) error {
		idx, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || idx < 1 || idx > len(options) {
			return fmt.Errorf("please enter a number between 1 and %d", len(options))
		}
		return nil
	})
	idx, _ := strconv.Atoi(strings.TrimSpace(input))
	return idx - 1
}

func (u *TerminalUI) KeyValue(rows [][2]string) {
	width := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r[0]); w > width {
			width = w
		}
	}
	for _, r := range rows {
		u.writeLine(runewidth.FillRight(r[0], width) + "  " + r[1])
	}
}

func (u *TerminalUI) Table(headers []string, rows [][]string) {
	u.TableWithGroups(headers, [][][]string{rows})
}

// cellWidth is the printed width of s, ANSI sequences excluded.
func cellWidth(s string) int {
	return runewidth.StringWidth(ansi.Strip(s))
}

func padCell(s string, w int) string {
	if visible := cellWidth(s); visible < w {
		return s + strings.Repeat(" ", w-visible)
	}
	return s
}

// TableWithGroups sizes every column over all groups so the groups line up
// and separates them with ├─┼─┤.
func (u *TerminalUI) TableWithGroups(headers []string, groups [][][]string) {
	if len(groups) == 0 {
		return
	}
	ncols := len(headers)
	if ncols == 0 {
		for _, g := range groups {
			for _, r := range g {
				ncols = max(ncols, len(r))
			}
		}
	}
	widths := make([]int, ncols)
	for i, h := range headers {
		widths[i] = cellWidth(h)
	}
	for _, g := range groups {
		for _, r := range g {
			for i := 0; i < ncols && i < len(r); i++ {
				widths[i] = max(widths[i], cellWidth(r[i]))
			}
		}
	}

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dashes := make([]string, ncols)
	for i, w := range widths {
		dashes[i] = strings.Repeat("─", w+2)
	}
	rule := func(left, mid, right string) string {
		return borderStyle.Render(left + strings.Join(dashes, mid) + right)
	}
	bar := borderStyle.Render("│")
	row := func(cells []string) string {
		parts := make([]string, ncols)
		for i := range parts {
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			parts[i] = " " + padCell(val, widths[i]) + " "
		}
		return bar + strings.Join(parts, bar) + bar
	}

	u.writeLine(rule("┌", "┬", "┐"))
	if len(headers) > 0 {
		u.writeLine(row(headers))
		u.writeLine(rule("├", "┼", "┤"))
	}
	for gi, g := range groups {
		if gi > 0 {
			u.writeLine(rule("├", "┼", "┤"))
		}
		for _, r := range g {
			u.writeLine(row(r))
		}
	}
	u.writeLine(rule("└", "┴", "┘"))
}

func (u *TerminalUI) Box(title string, lines []string) {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("214")).
		Padding(0, 1)
	body := strings.Join(lines, "\n")
	if title != "" {
		body = lipgloss.NewStyle().Bold(true).Render(title) + "\n\n" + body
	}
	for _, line := range strings.Split(style.Render(body), "\n") {
		u.writeLine(line)
	}
}

// Spinner only animates on a terminal, elsewhere msg is printed once.
func (u *TerminalUI) Spinner(msg string) func() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		u.writeLine(msg)
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(u.out))
	s.Prefix = u.prefix()
	s.Suffix = " " + msg
	s.Start()
	return func() {
		s.Stop()
		// the spinner leaves the cursor on its cleared line
		fmt.Fprintln(u.out)
	}
}

func (u *TerminalUI) Indent() UI {
	child := *u
	child.indentLevel++
	return &child
}

func (u *TerminalUI) Writer() io.Writer {
	if u.indentLevel == 0 {
		return u.out
	}
	return indent.NewWriter(u.out, u.prefix())
}
