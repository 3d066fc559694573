package gwprep

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// Whitespace is returned by DetermineDelimiter for tables whose columns are
// separated by runs of spaces, as written by many simulation codes.
const Whitespace = ' '

// DetermineDelimiter returns the single most likely rune that would delimit the
// values at the head of br, assuming a CSV-like file. br is not consumed.
func DetermineDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())

	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(head), '"')

	if len(delimiters) > 0 && delimiters[0] != "" {
		return rune(delimiters[0][0])
	}

	firstLine := string(head)
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	if strings.ContainsRune(firstLine, '\t') {
		return '\t'
	}
	if len(strings.Fields(firstLine)) > 1 {
		return Whitespace
	}

	return ','
}
