package ui

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Entry is one recorded UI call.
type Entry struct {
	Method string
	Value  string
}

// recordingState is shared by a RecordingUI and its Indent children so
// nested prompts consume the same input queue.
type recordingState struct {
	entries []Entry
	inputs  []string
	next    int
	buf     bytes.Buffer
}

// RecordingUI implements UI for tests. Output is kept as entries, input is
// served from the scripted values in order. Running out of input, or input
// that fails validation, panics: the script is wrong, not the user.
type RecordingUI struct {
	state       *recordingState
	indentLevel int
}

func NewRecordingUI(scriptedInputs ...string) *RecordingUI {
	return &RecordingUI{
		state: &recordingState{inputs: scriptedInputs},
	}
}

func (r *RecordingUI) record(method, value string) {
	r.state.entries = append(r.state.entries, Entry{Method: method, Value: value})
}

func (r *RecordingUI) nextInput(caller string) string {
	if r.state.next >= len(r.state.inputs) {
		panic(fmt.Sprintf("RecordingUI: no scripted input left for %s (consumed %d so far)", caller, r.state.next))
	}
	input := r.state.inputs[r.state.next]
	r.state.next++
	return input
}

func (r *RecordingUI) Style(t StyledText) string {
	return t.Text
}

func (r *RecordingUI) Info(format string, args ...any) {
	r.record("Info", fmt.Sprintf(format, args...))
}

func (r *RecordingUI) Success(format string, args ...any) {
	r.record("Success", fmt.Sprintf(format, args...))
}

func (r *RecordingUI) Warn(format string, args ...any) {
	r.record("Warn", fmt.Sprintf(format, args...))
}

func (r *RecordingUI) Error(format string, args ...any) {
	r.record("Error", fmt.Sprintf(format, args...))
}

func (r *RecordingUI) Critical(format string, args ...any) {
	r.record("Critical", fmt.Sprintf(format, args...))
}

func (r *RecordingUI) Section(title string) {
	r.record("Section", title)
}

func (r *RecordingUI) Interpret(value string) {
	r.record("Interpret", value)
}

func (r *RecordingUI) KeyValue(rows [][2]string) {
	for _, row := range rows {
		r.record("KeyValue", row[0]+": "+row[1])
	}
}

func (r *RecordingUI) Table(headers []string, rows [][]string) {
	r.TableWithGroups(headers, [][][]string{rows})
}

// TableWithGroups records one entry per row, cells joined with " | ".
func (r *RecordingUI) TableWithGroups(headers []string, groups [][][]string) {
	if len(headers) > 0 {
		r.record("TableHeader", strings.Join(headers, " | "))
	}
	for _, g := range groups {
		for _, row := range g {
			r.record("TableRow", strings.Join(row, " | "))
		}
	}
}

func (r *RecordingUI) Box(title string, lines []string) {
	r.record("Box", title+"\n"+strings.Join(lines, "\n"))
}

func (r *RecordingUI) Spinner(msg string) func() {
	r.record("Spinner", msg)
	return func() {}
}

func (r *RecordingUI) Ask(validate func(string) error) string {
	input := r.nextInput("Ask")
	r.record("Ask", input)
	if validate != nil {
		if err := validate(input); err != nil {
			panic(fmt.Sprintf("RecordingUI: scripted input %q failed validation in Ask: %s", input, err))
		}
	}
	return input
}

// Secret serves the next input without recording it.
func (r *RecordingUI) Secret(prompt string) string {
	r.record("Secret", prompt)
	return r.nextInput("Secret")
}

// Confirm takes "y"/"yes" as true, "n"/"no" as false and "" as the
// default.
func (r *RecordingUI) Confirm(prompt string, defaultYes bool) bool {
	r.record("Confirm", prompt)
	input := strings.ToLower(strings.TrimSpace(r.nextInput("Confirm")))
	if input == "" {
		return defaultYes
	}
	return input == "y" || input == "yes"
}

// Choose takes either a 1-based index or the option text, case
// insensitive.
func (r *RecordingUI) Choose(prompt string, options []string) int {
	r.record("Choose", prompt)
	input := strings.TrimSpace(r.nextInput("Choose"))
	if idx, err := strconv.Atoi(input); err == nil && idx >= 1 && idx <= len(options) {
		return idx - 1
	}
	for i, opt := range options {
		if strings.EqualFold(input, opt) {
			return i
		}
	}
	panic(fmt.Sprintf("RecordingUI: scripted input %q does not match any option in Choose(%q, %v)", input, prompt, options))
}

func (r *RecordingUI) Indent() UI {
	return &RecordingUI{state: r.state, indentLevel: r.indentLevel + 1}
}

func (r *RecordingUI) Writer() io.Writer {
	return &r.state.buf
}

func (r *RecordingUI) Entries() []Entry {
	return r.state.entries
}

func (r *RecordingUI) Messages(method string) []string {
	var out []string
	for _, e := range r.state.entries {
		if e.Method == method {
			out = append(out, e.Value)
		}
	}
	return out
}

// HasMessage reports whether any recorded value contains substr, case
// insensitive.
func (r *RecordingUI) HasMessage(substr string) bool {
	lower := strings.ToLower(substr)
	for _, e := range r.state.entries {
		if strings.Contains(strings.ToLower(e.Value), lower) {
			return true
		}
	}
	return false
}

// Remaining is the number of scripted inputs not consumed yet.
func (r *RecordingUI) Remaining() int {
	return len(r.state.inputs) - r.state.next
}

// Output is everything written to Writer.
func (r *RecordingUI) Output() string {
	return r.state.buf.String()
}
