package document

import "fmt"

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnreadable
	KindEncrypted
	KindNoText
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnreadable:
		return "unreadable"
	case KindEncrypted:
		return "encrypted"
	case KindNoText:
		return "no_text"
	default:
		return "unknown"
	}
}

// ExtractionError is the only error type returned by Extractor.Extract.
// Its message is meant to be shown to the user.
type ExtractionError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	var msg string
	switch e.Kind {
	case KindNotFound:
		return "file not found"
	case KindEncrypted:
		return "document is encrypted and could not be decrypted"
	case KindNoText:
		return "no text could be extracted (the document may be empty or contain only images)"
	case KindUnreadable:
		msg = "file could not be read"
	default:
		msg = "extraction failed"
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is matches another *ExtractionError by kind, so errors.Is(err, ErrNotFound) works.
func (e *ExtractionError) Is(target error) bool {
	t, ok := target.(*ExtractionError)
	return ok && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNotFound   = &ExtractionError{Kind: KindNotFound}
	ErrUnreadable = &ExtractionError{Kind: KindUnreadable}
	ErrEncrypted  = &ExtractionError{Kind: KindEncrypted}
	ErrNoText     = &ExtractionError{Kind: KindNoText}
)

func newError(kind Kind, path string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Path: path, Err: err}
}
