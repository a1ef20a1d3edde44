package stl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

// lexer reads whitespace-separated tokens from a text STL stream.
type lexer struct {
	r *bufio.Reader
}

// token skips whitespace and returns the next token. io.EOF means the stream
// ended with no token left.
func (l *lexer) token() (string, error) {
	var b byte
	var err error
	for {
		b, err = l.r.ReadByte()
		if err != nil {
			return "", err
		}
		if !isSpace(b) {
			break
		}
	}

	tok := []byte{b}
	for {
		b, err = l.r.ReadByte()
		if err == io.EOF {
			return string(tok), nil
		}
		if err != nil {
			return "", err
		}
		if isSpace(b) {
			return string(tok), nil
		}
		tok = append(tok, b)
	}
}

// restOfLine consumes the remainder of the current line. Used for solid
// names, which run to end of line and are not parsed as tokens.
func (l *lexer) restOfLine() {
	for {
		b, err := l.r.ReadByte()
		if err != nil || b == '\n' {
			return
		}
	}
}

// expect reads the next token and requires it to equal want.
func (l *lexer) expect(want string) error {
	tok, err := l.token()
	if err != nil {
		return fmt.Errorf("%w: expected %q", ErrFileTruncated, want)
	}
	if tok != want {
		return fmt.Errorf("%w: expected %q, got %q", ErrUnexpectedToken, want, tok)
	}
	return nil
}

// float reads the next token as a number. Values are parsed at 32-bit
// precision to match the binary encoding, then widened.
func (l *lexer) float() (float64, error) {
	tok, err := l.token()
	if err != nil {
		return 0, fmt.Errorf("%w: expected number", ErrFileTruncated)
	}
	f, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidToken, tok)
	}
	return f, nil
}

func (l *lexer) vec3() (math3d.Vec3, error) {
	x, err := l.float()
	if err != nil {
		return math3d.Vec3{}, err
	}
	y, err := l.float()
	if err != nil {
		return math3d.Vec3{}, err
	}
	z, err := l.float()
	if err != nil {
		return math3d.Vec3{}, err
	}
	return math3d.V3(x, y, z), nil
}

// loadText parses the ASCII encoding:
//
//	solid <name>
//	  facet normal nx ny nz
//	    outer loop
//	      vertex x y z   (three times)
//	    endloop
//	  endfacet
//	endsolid <name>
func loadText(br *bufio.Reader, cfg config) (*geometry.Mesh, error) {
	lx := &lexer{r: br}

	if err := lx.expect("solid"); err != nil {
		return nil, err
	}
	lx.restOfLine()

	var (
		tris   []geometry.Triangle
		bounds geometry.AABB
	)

	for {
		tok, err := lx.token()
		if err != nil {
			return nil, fmt.Errorf("%w: missing endsolid", ErrFileTruncated)
		}

		switch tok {
		case "endsolid":
			lx.restOfLine()
			return geometry.Weld(tris, bounds), nil

		case "facet":
			if err := lx.expect("normal"); err != nil {
				return nil, err
			}
			normal, err := lx.vec3()
			if err != nil {
				return nil, err
			}
			if err := lx.expect("outer"); err != nil {
				return nil, err
			}
			if err := lx.expect("loop"); err != nil {
				return nil, err
			}

			var tri geometry.Triangle
			tri.Normal = normal
			for i := range tri.V {
				if err := lx.expect("vertex"); err != nil {
					return nil, err
				}
				v, err := lx.vec3()
				if err != nil {
					return nil, err
				}
				tri.V[i] = v

				if len(tris) == 0 && i == 0 {
					bounds = geometry.AABB{From: v, To: v}
				} else {
					bounds = bounds.Extend(v)
				}
			}

			if err := lx.expect("endloop"); err != nil {
				return nil, err
			}
			if err := lx.expect("endfacet"); err != nil {
				return nil, err
			}

			if !cfg.useFileNormals {
				tri.Normal = tri.FlatNormal()
			}
			tris = append(tris, tri)

		default:
			return nil, fmt.Errorf("%w: expected \"facet\" or \"endsolid\", got %q", ErrUnexpectedToken, tok)
		}
	}
}
