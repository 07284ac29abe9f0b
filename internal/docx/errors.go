package docx

import "fmt"

// ErrorType classifies why a file could not be turned into a Document.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeNotDocx
	ErrorTypeEmptyFile
	ErrorTypeFileTooLarge
	ErrorTypeInvalidArchive
	ErrorTypeMissingPart
	ErrorTypeMalformedXML
)

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeNotDocx:
		return "NOT_DOCX"
	case ErrorTypeEmptyFile:
		return "EMPTY_FILE"
	case ErrorTypeFileTooLarge:
		return "FILE_TOO_LARGE"
	case ErrorTypeInvalidArchive:
		return "INVALID_ARCHIVE"
	case ErrorTypeMissingPart:
		return "MISSING_PART"
	case ErrorTypeMalformedXML:
		return "MALFORMED_XML"
	default:
		return "UNKNOWN"
	}
}

// Error is returned for every failure to validate or decode a .docx file.
type Error struct {
	Type     ErrorType
	Message  string
	FilePath string
	Err      error
}

func newError(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.FilePath != "" {
		msg += ": " + e.FilePath
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithFile adds file path information to the error
func (e *Error) WithFile(filePath string) *Error {
	e.FilePath = filePath
	return e
}

// IsDecodeFailure reports whether the file was read but its content is not a
// usable Word document, as opposed to being rejected before decoding.
func (e *Error) IsDecodeFailure() bool {
	switch e.Type {
	case ErrorTypeInvalidArchive, ErrorTypeMissingPart, ErrorTypeMalformedXML:
		return true
	default:
		return false
	}
}
