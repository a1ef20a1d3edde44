// Package stl loads STL meshes in both the text and binary encodings, with
// optional automatic format detection. Loaded geometry is welded into an
// indexed mesh; surface normals are recomputed from winding unless the caller
// opts into the normals stored in the file.
package stl

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/fbbdev/rendirt/pkg/geometry"
)

// Mode selects the STL encoding to parse.
type Mode int

const (
	// ModeAuto detects the encoding from the first bytes of the stream.
	ModeAuto Mode = iota
	// ModeText parses the ASCII "solid" encoding.
	ModeText
	// ModeBinary parses the 80-byte-header binary encoding.
	ModeBinary
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeBinary:
		return "binary"
	default:
		return "auto"
	}
}

// Load error conditions. All loader errors wrap one of these sentinels, so
// callers can classify failures with errors.Is.
var (
	// ErrInvalidToken reports a token that could not be parsed as a number.
	ErrInvalidToken = errors.New("stl: invalid token")
	// ErrUnexpectedToken reports a well-formed token in the wrong position.
	ErrUnexpectedToken = errors.New("stl: unexpected token")
	// ErrFileTruncated reports a stream that ended mid-structure.
	ErrFileTruncated = errors.New("stl: file truncated")
	// ErrGuessFailed reports that automatic format detection was inconclusive.
	ErrGuessFailed = errors.New("stl: cannot guess format")
)

type config struct {
	useFileNormals bool
}

// Option configures a load operation.
type Option func(*config)

// UseFileNormals keeps the per-facet normals stored in the file instead of
// recomputing them from vertex winding.
func UseFileNormals() Option {
	return func(c *config) { c.useFileNormals = true }
}

// Load reads an STL mesh from r. With ModeAuto the encoding is detected
// first; detection never consumes stream bytes, so a detected text file is
// parsed from its very first token.
//
// On failure no partial geometry is returned.
func Load(r io.Reader, mode Mode, opts ...Option) (*geometry.Mesh, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	br := bufio.NewReader(r)

	if mode == ModeAuto {
		var err error
		mode, err = guess(br)
		if err != nil {
			return nil, err
		}
	}

	if mode == ModeText {
		return loadText(br, cfg)
	}
	return loadBinary(br, cfg)
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, mode Mode, opts ...Option) (*geometry.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, mode, opts...)
}

// The binary header is 80 bytes. Detection works within that budget: it may
// skip at most 74 bytes of leading whitespace so that the 6 bytes needed to
// recognize "solid" plus a separator still fit inside the header.
const (
	headerSize    = 80
	maxLeadingWS  = 74
	keywordBudget = 6
)

// guess inspects the first bytes of the stream without consuming them and
// decides between the text and binary encodings. A stream is text when,
// after leading whitespace, it starts with the keyword "solid" followed by
// more whitespace. "solid" followed by a non-space byte is ambiguous and
// fails, as does a stream that ends inside the keyword.
func guess(br *bufio.Reader) (Mode, error) {
	head, err := br.Peek(headerSize)
	if err != nil && err != io.EOF {
		return ModeAuto, err
	}

	skipped := 0
	for skipped < len(head) && isSpace(head[skipped]) {
		skipped++
	}
	if skipped > maxLeadingWS {
		return ModeAuto, ErrGuessFailed
	}

	head = head[skipped:]
	if len(head) > keywordBudget {
		head = head[:keywordBudget]
	}

	switch {
	case len(head) == keywordBudget && string(head[:5]) == "solid":
		if isSpace(head[5]) {
			return ModeText, nil
		}
		return ModeAuto, ErrGuessFailed
	case len(head) < keywordBudget && strings.HasPrefix("solid", string(head)):
		// Stream ended inside the keyword; too short to classify.
		return ModeAuto, ErrGuessFailed
	default:
		return ModeBinary, nil
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
