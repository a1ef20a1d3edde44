package stl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

const triangleText = `solid triangle
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid triangle
`

// binarySTL assembles a binary stream from facets given as flat float32
// groups: normal then three vertices.
func binarySTL(t *testing.T, facets ...[12]float32) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(facets))); err != nil {
		t.Fatal(err)
	}
	for _, f := range facets {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
			t.Fatal(err)
		}
		buf.Write([]byte{0, 0}) // attribute word
	}
	return buf.Bytes()
}

func TestLoadText(t *testing.T) {
	mesh, err := Load(strings.NewReader(triangleText), ModeText)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if mesh.FaceCount() != 1 {
		t.Fatalf("FaceCount() = %d, want 1", mesh.FaceCount())
	}
	if mesh.VertexCount() != 3 {
		t.Fatalf("VertexCount() = %d, want 3", mesh.VertexCount())
	}

	want := geometry.AABB{From: math3d.V3(0, 0, 0), To: math3d.V3(1, 1, 0)}
	if mesh.Bounds() != want {
		t.Errorf("Bounds() = %+v, want %+v", mesh.Bounds(), want)
	}
}

func TestLoadTextErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{
			name:  "empty stream",
			input: "",
			want:  ErrFileTruncated,
		},
		{
			name:  "wrong header keyword",
			input: "solidx\nendsolid\n",
			want:  ErrUnexpectedToken,
		},
		{
			name:  "missing endsolid",
			input: "solid x\n",
			want:  ErrFileTruncated,
		},
		{
			name:  "truncated after outer loop",
			input: "solid x\nfacet normal 0 0 1\nouter loop\n",
			want:  ErrFileTruncated,
		},
		{
			name:  "truncated mid vertex",
			input: "solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0",
			want:  ErrFileTruncated,
		},
		{
			name:  "non-numeric coordinate",
			input: "solid x\nfacet normal 0 0 one\n",
			want:  ErrInvalidToken,
		},
		{
			name:  "stray token between facets",
			input: "solid x\nbogus\nendsolid x\n",
			want:  ErrUnexpectedToken,
		},
		{
			name:  "loop keyword misspelled",
			input: "solid x\nfacet normal 0 0 1\nouter looop\n",
			want:  ErrUnexpectedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input), ModeText)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadTextEmptySolid(t *testing.T) {
	mesh, err := Load(strings.NewReader("solid empty\nendsolid empty\n"), ModeText)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mesh.FaceCount() != 0 || mesh.VertexCount() != 0 {
		t.Errorf("empty solid produced %d faces, %d vertices", mesh.FaceCount(), mesh.VertexCount())
	}
	if mesh.Bounds() != (geometry.AABB{}) {
		t.Errorf("empty solid bounds = %+v, want zero box", mesh.Bounds())
	}
}

func TestLoadTextWeldsSharedVertices(t *testing.T) {
	const quad = `solid quad
facet normal 0 0 1
outer loop
vertex 0 0 0
vertex 1 0 0
vertex 0 1 0
endloop
endfacet
facet normal 0 0 1
outer loop
vertex 1 0 0
vertex 1 1 0
vertex 0 1 0
endloop
endfacet
endsolid quad
`
	mesh, err := Load(strings.NewReader(quad), ModeText)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mesh.VertexCount() != 4 {
		t.Errorf("VertexCount() = %d, want 4 (shared edge welded)", mesh.VertexCount())
	}
}

func TestLoadTextNormals(t *testing.T) {
	// File stores a deliberately wrong normal; default load recomputes it
	// from winding, UseFileNormals keeps it.
	const tri = `solid t
facet normal 1 0 0
outer loop
vertex 0 0 0
vertex 1 0 0
vertex 0 1 0
endloop
endfacet
endsolid t
`
	mesh, err := Load(strings.NewReader(tri), ModeText)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := mesh.Faces[0].Normal; got != math3d.V3(0, 0, 1) {
		t.Errorf("recomputed normal = %v, want (0,0,1)", got)
	}

	mesh, err = Load(strings.NewReader(tri), ModeText, UseFileNormals())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := mesh.Faces[0].Normal; got != math3d.V3(1, 0, 0) {
		t.Errorf("file normal = %v, want (1,0,0)", got)
	}
}

func TestLoadBinary(t *testing.T) {
	data := binarySTL(t, [12]float32{
		0, 0, 1,
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	})

	mesh, err := Load(bytes.NewReader(data), ModeBinary)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mesh.FaceCount() != 1 || mesh.VertexCount() != 3 {
		t.Fatalf("got %d faces, %d vertices", mesh.FaceCount(), mesh.VertexCount())
	}

	want := geometry.AABB{From: math3d.V3(0, 0, 0), To: math3d.V3(1, 1, 0)}
	if mesh.Bounds() != want {
		t.Errorf("Bounds() = %+v, want %+v", mesh.Bounds(), want)
	}
}

func TestLoadBinaryZeroFacets(t *testing.T) {
	mesh, err := Load(bytes.NewReader(binarySTL(t)), ModeBinary)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mesh.FaceCount() != 0 {
		t.Errorf("FaceCount() = %d, want 0", mesh.FaceCount())
	}
}

func TestLoadBinaryDegenerateFacet(t *testing.T) {
	// All vertices coincident: accepted, normal recomputes to zero.
	data := binarySTL(t, [12]float32{
		0, 0, 1,
		2, 2, 2,
		2, 2, 2,
		2, 2, 2,
	})

	mesh, err := Load(bytes.NewReader(data), ModeBinary)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mesh.FaceCount() != 1 {
		t.Fatalf("FaceCount() = %d, want 1", mesh.FaceCount())
	}
	if mesh.VertexCount() != 1 {
		t.Errorf("VertexCount() = %d, want 1", mesh.VertexCount())
	}
	if got := mesh.Faces[0].Normal; got != math3d.Zero3() {
		t.Errorf("degenerate normal = %v, want zero", got)
	}
}

func TestLoadBinaryTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", make([]byte, 40)},
		{"missing count", make([]byte, 80)},
		{"missing record", binarySTL(t, [12]float32{0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0})[:84+10]},
	}

	full := binarySTL(t, [12]float32{0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0})
	// Claim two facets but provide one.
	binary.LittleEndian.PutUint32(full[80:84], 2)
	tests = append(tests, struct {
		name string
		data []byte
	}{"count exceeds records", full})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(tt.data), ModeBinary)
			if !errors.Is(err, ErrFileTruncated) {
				t.Errorf("Load() error = %v, want %v", err, ErrFileTruncated)
			}
		})
	}
}

func TestAutoDetection(t *testing.T) {
	binData := binarySTL(t, [12]float32{0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0})

	tests := []struct {
		name      string
		data      []byte
		wantErr   error
		wantFaces int
	}{
		{
			name:      "text stream",
			data:      []byte(triangleText),
			wantFaces: 1,
		},
		{
			name:      "text stream with leading whitespace",
			data:      []byte("\n\n   " + triangleText),
			wantFaces: 1,
		},
		{
			name:      "binary stream",
			data:      binData,
			wantFaces: 1,
		},
		{
			name:    "solid keyword fused with name",
			data:    []byte("solidthing\nfacet normal 0 0 1\n"),
			wantErr: ErrGuessFailed,
		},
		{
			name:    "stream ends inside keyword",
			data:    []byte("sol"),
			wantErr: ErrGuessFailed,
		},
		{
			name:    "bare solid at end of stream",
			data:    []byte("solid"),
			wantErr: ErrGuessFailed,
		},
		{
			name:    "whitespace exhausts detection budget",
			data:    append(bytes.Repeat([]byte{' '}, 75), []byte(triangleText)...),
			wantErr: ErrGuessFailed,
		},
		{
			name:    "empty stream",
			data:    nil,
			wantErr: ErrGuessFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := Load(bytes.NewReader(tt.data), ModeAuto)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if mesh.FaceCount() != tt.wantFaces {
				t.Errorf("FaceCount() = %d, want %d", mesh.FaceCount(), tt.wantFaces)
			}
		})
	}
}

func TestAutoMatchesExplicitText(t *testing.T) {
	auto, err := Load(strings.NewReader(triangleText), ModeAuto)
	if err != nil {
		t.Fatalf("auto Load() error = %v", err)
	}
	text, err := Load(strings.NewReader(triangleText), ModeText)
	if err != nil {
		t.Fatalf("text Load() error = %v", err)
	}

	if auto.FaceCount() != text.FaceCount() || auto.VertexCount() != text.VertexCount() {
		t.Errorf("auto (%d faces, %d verts) differs from explicit (%d faces, %d verts)",
			auto.FaceCount(), auto.VertexCount(), text.FaceCount(), text.VertexCount())
	}
	for i := range auto.Vertices {
		if auto.Vertices[i] != text.Vertices[i] {
			t.Fatalf("vertex %d differs: %v vs %v", i, auto.Vertices[i], text.Vertices[i])
		}
	}
}

func TestTextBinaryEquivalence(t *testing.T) {
	// The same triangle in both encodings must produce identical geometry,
	// including the float32 precision of the coordinates.
	const textTri = `solid t
facet normal 0 0 1
outer loop
vertex 0.1 0.2 0.3
vertex 1.5 0 0
vertex 0 1.25 0
endloop
endfacet
endsolid t
`
	binData := binarySTL(t, [12]float32{
		0, 0, 1,
		0.1, 0.2, 0.3,
		1.5, 0, 0,
		0, 1.25, 0,
	})

	textMesh, err := Load(strings.NewReader(textTri), ModeText)
	if err != nil {
		t.Fatalf("text Load() error = %v", err)
	}
	binMesh, err := Load(bytes.NewReader(binData), ModeBinary)
	if err != nil {
		t.Fatalf("binary Load() error = %v", err)
	}

	if len(textMesh.Vertices) != len(binMesh.Vertices) {
		t.Fatalf("vertex counts differ: %d vs %d", len(textMesh.Vertices), len(binMesh.Vertices))
	}
	for i := range textMesh.Vertices {
		if textMesh.Vertices[i] != binMesh.Vertices[i] {
			t.Errorf("vertex %d: text %v != binary %v", i, textMesh.Vertices[i], binMesh.Vertices[i])
		}
	}
}

func TestLoadTextFloat32Precision(t *testing.T) {
	// Coordinates are parsed at 32-bit precision, so a value that is not
	// representable as float32 rounds the same way the binary encoding would.
	const tri = `solid t
facet normal 0 0 1
outer loop
vertex 0.1 0 0
vertex 1 0 0
vertex 0 1 0
endloop
endfacet
endsolid t
`
	mesh, err := Load(strings.NewReader(tri), ModeText)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := float64(float32(0.1))
	var got float64 = math.NaN()
	for _, v := range mesh.Vertices {
		if v.Y == 0 && v.Z == 0 && v.X != 0 && v.X != 1 {
			got = v.X
		}
	}
	if got != want {
		t.Errorf("parsed coordinate = %v, want float32-rounded %v", got, want)
	}
}
