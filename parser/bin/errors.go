package bin

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a fatal decode error.
type Kind int

const (
	// KindEndOfData means a read ran past the end of the buffer.
	KindEndOfData Kind = iota + 1
	// KindInvariant means a decoded value broke a documented bound.
	KindInvariant
	// KindUnrecognized means no magic or extension matched the input.
	KindUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindEndOfData:
		return "end of data"
	case KindInvariant:
		return "invariant"
	case KindUnrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels for errors.Is checks against *Error values.
var (
	ErrEndOfData    = errors.New("past end of data")
	ErrInvariant    = errors.New("structural invariant violated")
	ErrUnrecognized = errors.New("unrecognized format")
)

// Error is the single error type produced by the decoders.
// Offset is the read position at the time of failure and Stage names
// the section that was being decoded (e.g. "instrument[3].operator[1]").
type Error struct {
	Kind    Kind
	Offset  int
	Stage   string
	Message string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.Grow(len(e.Stage) + len(e.Message) + 24)
	if e.Stage != "" {
		b.WriteString(e.Stage)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	fmt.Fprintf(&b, " (offset=%d)", e.Offset)
	return b.String()
}

// Is reports whether target is the sentinel matching e.Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrEndOfData:
		return e.Kind == KindEndOfData
	case ErrInvariant:
		return e.Kind == KindInvariant
	case ErrUnrecognized:
		return e.Kind == KindUnrecognized
	}
	return false
}

// Unrecognizedf builds a KindUnrecognized error. These are raised before
// any field has been decoded, so there is no offset or stage to report.
func Unrecognizedf(format string, args ...any) *Error {
	return &Error{
		Kind:    KindUnrecognized,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// WarningKind classifies a non-fatal condition.
type WarningKind int

const (
	// WarnForwardVersion means the file is newer than the newest known revision.
	WarnForwardVersion WarningKind = iota + 1
	// WarnTrailingData means bytes were left over after the last section.
	WarnTrailingData
	// WarnShortRead means an optional trailing section was missing.
	WarnShortRead
	// WarnLossy means a value had to be converted with loss of precision.
	WarnLossy
	// WarnSkippedEntry means one entry of a multi-entry file was corrupt and left out.
	WarnSkippedEntry
)

func (k WarningKind) String() string {
	switch k {
	case WarnForwardVersion:
		return "forward version"
	case WarnTrailingData:
		return "trailing data"
	case WarnShortRead:
		return "short read"
	case WarnLossy:
		return "lossy"
	case WarnSkippedEntry:
		return "skipped entry"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a non-fatal condition found while decoding.
type Warning struct {
	Kind    WarningKind
	Offset  int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("offset %d: %s", w.Offset, w.Message)
}

// Warnings is an ordered list of warnings, in the order they were found.
type Warnings []Warning

// Addf appends a warning.
func (ws *Warnings) Addf(kind WarningKind, offset int, format string, args ...any) {
	*ws = append(*ws, Warning{
		Kind:    kind,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	})
}

// Has reports whether any warning of the given kind was recorded.
func (ws Warnings) Has(kind WarningKind) bool {
	for _, w := range ws {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// Strings renders every warning with String.
func (ws Warnings) Strings() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}
