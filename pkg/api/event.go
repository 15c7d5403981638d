package api

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SDKName and SDKVersion identify this client in every event and in the
// X-Sentry-Auth header.
const (
	SDKName    = "raven-go"
	SDKVersion = "0.4.0"
)

// MaxMessageLength is the longest message accepted by the store API.
const MaxMessageLength = 1000

// TimestampLayout is ISO 8601 without a timezone; timestamps are UTC.
const TimestampLayout = "2006-01-02T15:04:05"

// Level is the severity of an event.
type Level string

const (
	LevelFatal   Level = "fatal"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelDebug   Level = "debug"
)

// Levels lists every level from most to least severe.
var Levels = []Level{LevelFatal, LevelError, LevelWarning, LevelInfo, LevelDebug}

// ParseLevel returns the Level named by s, or false if s is not a level.
func ParseLevel(s string) (Level, bool) {
	for _, l := range Levels {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return "", false
}

// StackFrame is one resolved call-stack entry.
type StackFrame struct {
	Filename string `json:"filename"`
	Function string `json:"function"`
	Lineno   int    `json:"lineno"`
}

// StackTrace holds frames ordered innermost first.
type StackTrace struct {
	Frames []StackFrame `json:"frames"`
}

// SDK describes the client library that produced an event.
type SDK struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Device describes the machine an event originated from.
type Device struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Build   string `json:"build"`
}

// Event is a single error or message report.
type Event struct {
	EventID   string `json:"event_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Level     Level  `json:"level"`
	Logger    string `json:"logger"`
	Platform  string `json:"platform"`
	SDK       SDK    `json:"sdk"`
	Device    Device `json:"device"`

	Culprit     string            `json:"culprit,omitempty"`
	ServerName  string            `json:"server_name,omitempty"`
	Stacktrace  *StackTrace       `json:"stacktrace,omitempty"`
	Release     string            `json:"release,omitempty"`
	Tags        map[string]string `json:"tags"`
	Environment string            `json:"environment,omitempty"`
	Modules     map[string]string `json:"modules"`
	Extra       map[string]string `json:"extra"`
	Fingerprint []string          `json:"fingerprint"`
}

// EventOptions carries the optional parts of an Event.
type EventOptions struct {
	Culprit     string
	ServerName  string
	Release     string
	Environment string
	Device      Device

	// Fingerprint defaults to an empty list, letting the server group the
	// event on its own.
	Fingerprint []string

	// Frames, if non-nil, become the event's stack trace.
	Frames []StackFrame
}

// NewEvent builds an event stamped with a fresh id and the current time.
func NewEvent(logger string, level Level, message string, opts EventOptions) *Event {
	fingerprint := opts.Fingerprint
	if fingerprint == nil {
		fingerprint = []string{}
	}

	ev := &Event{
		EventID:   NewEventID(),
		Message:   truncate(message, MaxMessageLength),
		Timestamp: time.Now().UTC().Format(TimestampLayout),
		Level:     level,
		Logger:    logger,
		Platform:  "go",
		SDK: SDK{
			Name:    SDKName,
			Version: SDKVersion,
		},
		Device:      opts.Device,
		Culprit:     opts.Culprit,
		ServerName:  opts.ServerName,
		Release:     opts.Release,
		Environment: opts.Environment,
		Tags:        map[string]string{},
		Modules:     map[string]string{},
		Extra:       map[string]string{},
		Fingerprint: fingerprint,
	}
	if opts.Frames != nil {
		ev.Stacktrace = &StackTrace{Frames: opts.Frames}
	}
	return ev
}

// PushTag sets a tag, replacing any previous value for key.
func (e *Event) PushTag(key, value string) {
	if e.Tags == nil {
		e.Tags = map[string]string{}
	}
	e.Tags[key] = value
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	c := *e
	c.Tags = cloneMap(e.Tags)
	c.Modules = cloneMap(e.Modules)
	c.Extra = cloneMap(e.Extra)
	if e.Fingerprint != nil {
		c.Fingerprint = append(make([]string, 0, len(e.Fingerprint)), e.Fingerprint...)
	}
	if e.Stacktrace != nil {
		c.Stacktrace = &StackTrace{Frames: append([]StackFrame(nil), e.Stacktrace.Frames...)}
	}
	return &c
}

// DefaultFingerprint groups events by logger, level and culprit.
func DefaultFingerprint(logger string, level Level, culprit string) []string {
	return []string{logger, string(level), culprit}
}

// NewEventID returns a random uuid4 as 32 hex characters without dashes.
func NewEventID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
