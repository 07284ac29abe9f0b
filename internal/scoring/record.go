package scoring

import "fmt"

// Document is the decoded paragraph and table view of an evaluation form.
type Document interface {
	// ParagraphTexts returns body paragraph texts in document order.
	ParagraphTexts() []string
	// TableTexts returns tables in document order, each as rows of cell texts.
	TableTexts() [][][]string
}

// Decoder turns raw container bytes into a Document.
type Decoder interface {
	Decode(data []byte) (Document, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(data []byte) (Document, error)

// Decode calls f(data).
func (f DecoderFunc) Decode(data []byte) (Document, error) {
	return f(data)
}

// DecodeError reports that a document container could not be decoded.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("document parse failed: %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Extract builds the record for a decoded document. It never fails: missing
// header fields keep the Unextracted sentinel and unscored categories stay 0.
func Extract(doc Document, t EvaluationType) StudentRecord {
	h := ExtractHeader(doc.ParagraphTexts())
	return StudentRecord{
		ID:     h.ID,
		Name:   h.Name,
		Scores: Aggregate(doc.TableTexts(), t),
	}
}

// Parse decodes data with dec and extracts the record. A decoder failure is
// returned as *DecodeError naming source; no partial record is produced.
func Parse(dec Decoder, source string, data []byte, t EvaluationType) (StudentRecord, error) {
	doc, err := dec.Decode(data)
	if err != nil {
		return StudentRecord{}, &DecodeError{Source: source, Err: err}
	}
	if doc == nil {
		return StudentRecord{}, &DecodeError{Source: source, Err: fmt.Errorf("decoder returned no document")}
	}
	return Extract(doc, t), nil
}
