// Package logger is cribo's diagnostic channel: a Log carries an AddMsg
// callback and a Done() drain, messages are sorted by severity then
// location, and fatal errors are distinguished from warnings by MsgKind
// rather than by a separate error type. The CLI (cmd/cribo) renders
// messages in color via github.com/fatih/color; the bundling packages
// themselves only ever call AddMsg.
package logger

import (
	"fmt"
	"sort"
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Note
	Debug
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	case Debug:
		return "debug"
	default:
		return "unknown"
	}
}

// MsgLocation pinpoints a diagnostic in a source file. Line is 1-based,
// Column is 0-based in bytes.
type MsgLocation struct {
	File   string
	Line   int
	Column int
}

type MsgData struct {
	Text     string
	Location *MsgLocation
}

type Msg struct {
	Kind  MsgKind
	Data  MsgData
	Notes []MsgData
}

func (m Msg) String() string {
	if m.Data.Location != nil {
		return fmt.Sprintf("%s:%d:%d: %s: %s", m.Data.Location.File, m.Data.Location.Line, m.Data.Location.Column, m.Kind, m.Data.Text)
	}
	return fmt.Sprintf("%s: %s", m.Kind, m.Data.Text)
}

// Log collects diagnostics during one driver run. It is intentionally not
// safe for concurrent use from outside the driver's parallel parsing stage
// without external synchronization; the driver serializes AddMsg calls at
// its parse/build join points.
type Log struct {
	msgs []Msg
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) AddMsg(msg Msg) {
	l.msgs = append(l.msgs, msg)
}

func (l *Log) AddError(loc *MsgLocation, text string) {
	l.AddMsg(Msg{Kind: Error, Data: MsgData{Text: text, Location: loc}})
}

func (l *Log) AddWarning(loc *MsgLocation, text string) {
	l.AddMsg(Msg{Kind: Warning, Data: MsgData{Text: text, Location: loc}})
}

func (l *Log) HasErrors() bool {
	for _, m := range l.msgs {
		if m.Kind == Error {
			return true
		}
	}
	return false
}

// Done drains and returns all messages sorted by severity (errors first)
// then by file/line/column.
func (l *Log) Done() []Msg {
	msgs := l.msgs
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Kind != msgs[j].Kind {
			return msgs[i].Kind < msgs[j].Kind
		}
		li, lj := msgs[i].Data.Location, msgs[j].Data.Location
		if li == nil || lj == nil {
			return lj != nil
		}
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.Line != lj.Line {
			return li.Line < lj.Line
		}
		return li.Column < lj.Column
	})
	l.msgs = nil
	return msgs
}
