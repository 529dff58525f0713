package ui

import (
	"encoding/json"
	"io"
)

// Severity is the visual weight of a piece of inline text. Terminal output
// maps it to a colour, JSON and tests see the plain text.
type Severity uint8

const (
	SeverityInfo     Severity = iota // plain
	SeveritySuccess                  // green, verified / granted
	SeverityWarn                     // yellow, expiring / pending
	SeverityError                    // red, unauthorized / reverted
	SeverityCritical                 // bold, review before signing
)

// StyledText pairs a plain string with a Severity.
//
//	u.Info("Status: %s", u.Style(ui.StyledText{Text: "Expired", Severity: ui.SeverityError}))
type StyledText struct {
	Text     string
	Severity Severity
}

// MarshalJSON serializes StyledText as its plain text.
func (s StyledText) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Text)
}

// UI is every terminal interaction of the medchain commands. TerminalUI
// talks to stdin/stdout, RecordingUI captures output and serves scripted
// input for tests.
//
// UI satisfies wallet.Prompter, so the keystore wallet asks for account
// choices and passphrases through it.
type UI interface {
	// Style returns t coloured by its Severity, or plain when colours are
	// off.
	Style(t StyledText) string

	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	// Error writes a failure in red. It doesn't exit.
	Error(format string, args ...any)
	// Critical writes what the user must review before signing a
	// transaction, or the proof of one that was just mined.
	Critical(format string, args ...any)

	// Section writes a separator centred around title.
	Section(title string)

	// KeyValue renders label/value rows with the values aligned.
	KeyValue(rows [][2]string)

	// Table renders a bordered table. No header row when headers is empty.
	Table(headers []string, rows [][]string)

	// TableWithGroups is Table with a divider between groups of rows.
	TableWithGroups(headers []string, groups [][][]string)

	// Box renders lines inside a rounded border under title. Used for
	// remediation hints the user copies from, like allow-listed addresses
	// or manual network settings.
	Box(title string, lines []string)

	// Spinner shows msg with an animation until the returned stop is
	// called.
	Spinner(msg string) func()

	// Interpret shows how the last input was understood, eg. a role hint
	// resolved to a role.
	Interpret(value string)

	// Ask reads a line after a "> " prompt until validate accepts it. A nil
	// validate accepts anything.
	Ask(validate func(string) error) string

	// Secret reads a line without echoing it.
	Secret(prompt string) string

	// Confirm asks a yes/no question.
	Confirm(prompt string, defaultYes bool) bool

	// Choose lists options and returns the 0-based index picked.
	Choose(prompt string, options []string) int

	// Indent returns a child UI one level deeper sharing the same input
	// and output.
	Indent() UI

	// Writer returns a writer that indents every line at the current level.
	Writer() io.Writer
}
