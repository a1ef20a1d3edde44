// rendirt - headless mesh renderer
// Renders STL and GLB meshes to image files without a display.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fbbdev/rendirt/pkg/bvh"
	"github.com/fbbdev/rendirt/pkg/export"
	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/glb"
	"github.com/fbbdev/rendirt/pkg/math3d"
	"github.com/fbbdev/rendirt/pkg/render"
	"github.com/fbbdev/rendirt/pkg/stl"
)

var (
	format      = flag.String("format", "auto", "STL encoding: auto, text or binary")
	fileNormals = flag.Bool("file-normals", false, "Trust the normals stored in the file instead of recomputing them")
	shaderName  = flag.String("shader", "diffuse", "Shader: diffuse, depth, position or normal")
	cullName    = flag.String("cull", "cw", "Face culling: none, cw or ccw")
	width       = flag.Int("width", 800, "Output width in pixels")
	height      = flag.Int("height", 600, "Output height in pixels")
	output      = flag.String("o", "out.png", "Output image path (format from extension: png, bmp, tif)")
	raycast     = flag.Bool("raycast", false, "Render the bounding hierarchy's leaf boxes with the ray caster")
	leafSize    = flag.Int("leaf", bvh.DefaultLeafSize, "Faces per hierarchy leaf (with -raycast)")
	bgColor     = flag.String("bg", "255,255,255", "Background color (R,G,B)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rendirt - headless mesh renderer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: rendirt [options] <model.stl|model.glb>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	start := time.Now()
	mesh, err := loadModel(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Loaded %s: %d faces, %d vertices in %v\n",
		filepath.Base(path), mesh.FaceCount(), mesh.VertexCount(), time.Since(start).Round(time.Microsecond))

	cull, err := parseCull(*cullName)
	if err != nil {
		return err
	}

	var bgR, bgG, bgB uint8 = 255, 255, 255
	fmt.Sscanf(*bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)
	bg := render.RGB(bgR, bgG, bgB)

	mvp, eye := frameCamera(mesh.Bounds(), *width, *height)
	shader, err := pickShader(*shaderName, mesh.Bounds(), mesh.Center().Sub(eye))
	if err != nil {
		return err
	}

	img := render.NewImage(*width, *height)
	img.Clear(bg)
	depth := render.NewDepthBuffer(*width, *height)

	start = time.Now()
	if *raycast {
		tree := bvh.Build(mesh, *leafSize)
		fmt.Fprintf(os.Stderr, "Built hierarchy: %d nodes in %v\n",
			len(tree.Nodes), time.Since(start).Round(time.Microsecond))

		start = time.Now()
		hits := render.CastRays(img, depth, tree, mvp, shader, bg)
		fmt.Fprintf(os.Stderr, "Cast %d rays, %d hits in %v\n",
			*width**height, hits, time.Since(start).Round(time.Microsecond))
	} else {
		n := render.Rasterize(img, depth, mesh, mvp, shader, cull)
		fmt.Fprintf(os.Stderr, "Rendered %d/%d faces in %v\n",
			n, mesh.FaceCount(), time.Since(start).Round(time.Microsecond))
	}

	return export.Save(*output, img)
}

// loadModel picks the loader from the file extension; anything that is not
// glTF is treated as STL.
func loadModel(path string) (*geometry.Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		return glb.Load(path)
	default:
		mode, err := parseMode(*format)
		if err != nil {
			return nil, err
		}
		var opts []stl.Option
		if *fileNormals {
			opts = append(opts, stl.UseFileNormals())
		}
		return stl.LoadFile(path, mode, opts...)
	}
}

func parseMode(name string) (stl.Mode, error) {
	switch name {
	case "auto":
		return stl.ModeAuto, nil
	case "text":
		return stl.ModeText, nil
	case "binary":
		return stl.ModeBinary, nil
	default:
		return 0, fmt.Errorf("unknown STL encoding %q", name)
	}
}

func parseCull(name string) (render.CullMode, error) {
	switch name {
	case "none":
		return render.CullNone, nil
	case "cw", "back":
		return render.CullCW, nil
	case "ccw", "front":
		return render.CullCCW, nil
	default:
		return 0, fmt.Errorf("unknown culling mode %q", name)
	}
}

func pickShader(name string, bounds geometry.AABB, lightDir math3d.Vec3) (render.Shader, error) {
	switch name {
	case "diffuse":
		return render.DiffuseDirectional(lightDir, render.RGB(40, 40, 40), render.RGB(200, 200, 200)), nil
	case "depth":
		return render.Depth, nil
	case "position":
		return render.Position(bounds), nil
	case "normal":
		return render.Normal, nil
	default:
		return nil, fmt.Errorf("unknown shader %q", name)
	}
}

// frameCamera places the eye on the (1,1,1) diagonal at one bounding-box
// diagonal's distance from the mesh center, so the whole mesh fits a 60
// degree field of view.
func frameCamera(bounds geometry.AABB, width, height int) (mvp math3d.Mat4, eye math3d.Vec3) {
	center := bounds.Center()
	diagonal := bounds.Size().Len()
	if diagonal == 0 {
		diagonal = 1
	}

	eye = center.Add(math3d.V3(1, 1, 1).Normalize().Scale(diagonal))
	view := math3d.LookAt(eye, center, math3d.Up())
	proj := math3d.PerspectiveFov(math.Pi/3, float64(width), float64(height), 0.1, 2*diagonal)
	return proj.Mul(view), eye
}
