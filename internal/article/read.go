package article

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 16 << 20

// Parse decodes one article JSON object. Keys that are absent or null are
// reported together as a MissingFieldsError.
func Parse(data []byte) (Article, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Article{}, fmt.Errorf("parsing article JSON: %w", err)
	}

	var missing []string
	for _, f := range RequiredFields {
		v, ok := raw[f]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Article{}, &MissingFieldsError{Fields: missing}
	}

	var a Article
	if err := json.Unmarshal(data, &a); err != nil {
		return Article{}, fmt.Errorf("decoding article fields: %w", err)
	}
	return a, nil
}

// ReadFile loads a single article from a JSON file.
func ReadFile(path string) (Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Article{}, fmt.Errorf("reading article file: %w", err)
	}
	return Parse(data)
}

// ReadLines decodes one article per non-blank line. The first malformed line
// aborts the read and its line number is reported.
func ReadLines(r io.Reader) ([]Article, error) {
	var articles []Article
	err := eachLine(r, func(n int, line []byte) error {
		a, err := Parse(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		articles = append(articles, a)
		return nil
	})
	return articles, err
}

// ReadExamples decodes labeled few-shot examples, one JSON object per line.
func ReadExamples(r io.Reader) ([]LabeledExample, error) {
	var examples []LabeledExample
	err := eachLine(r, func(n int, line []byte) error {
		var ex LabeledExample
		if err := json.Unmarshal(line, &ex); err != nil {
			return fmt.Errorf("line %d: parsing example: %w", n, err)
		}
		examples = append(examples, ex)
		return nil
	})
	return examples, err
}

// ReadExamplesFile is ReadExamples over a file path.
func ReadExamplesFile(path string) ([]LabeledExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening examples file: %w", err)
	}
	defer f.Close()
	return ReadExamples(f)
}

func eachLine(r io.Reader, fn func(n int, line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading lines: %w", err)
	}
	return nil
}
