// rendirt-view - terminal mesh viewer
// Spins STL and GLB meshes in the terminal using half-block rendering.
//
// Controls:
//
//	Mouse drag  - Rotate model (yaw/pitch)
//	Scroll      - Zoom in/out
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Q/E         - Roll left/right
//	Space       - Apply random impulse
//	R           - Reset rotation and zoom
//	F           - Cycle shader (diffuse, normal, depth, position)
//	C           - Cycle face culling (cw, ccw, none)
//	B           - Toggle bounding hierarchy view (ray cast leaf boxes)
//	+/-         - Adjust zoom
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/fbbdev/rendirt/pkg/bvh"
	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/glb"
	"github.com/fbbdev/rendirt/pkg/math3d"
	"github.com/fbbdev/rendirt/pkg/render"
	"github.com/fbbdev/rendirt/pkg/stl"
)

var (
	targetFPS = flag.Int("fps", 60, "Target FPS")
	bgColor   = flag.String("bg", "30,30,40", "Background color (R,G,B)")
	leafSize  = flag.Int("leaf", bvh.DefaultLeafSize, "Faces per hierarchy leaf")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rendirt-view - terminal mesh viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: rendirt-view [options] <model.stl|model.glb>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Rotate model\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Pitch and yaw\n")
		fmt.Fprintf(os.Stderr, "  Q/E         - Roll left/right\n")
		fmt.Fprintf(os.Stderr, "  Space       - Random spin\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  F           - Cycle shader\n")
		fmt.Fprintf(os.Stderr, "  C           - Cycle face culling\n")
		fmt.Fprintf(os.Stderr, "  B           - Toggle hierarchy view\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
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

// RotationAxis tracks position and velocity for one rotation axis with
// spring decay.
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64
}

// NewRotationAxis creates an axis with a harmonica spring for smooth
// velocity decay.
func NewRotationAxis(fps int) RotationAxis {
	// Frequency 4.0 = moderate speed, damping 1.0 = critically damped
	return RotationAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0.
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState holds the model rotation with spring physics per axis.
type RotationState struct {
	Pitch, Yaw, Roll RotationAxis
	fps              int
}

func NewRotationState(fps int) *RotationState {
	return &RotationState{
		Pitch: NewRotationAxis(fps),
		Yaw:   NewRotationAxis(fps),
		Roll:  NewRotationAxis(fps),
		fps:   fps,
	}
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
	r.Roll = NewRotationAxis(r.fps)
}

func loadModel(path string) (*geometry.Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		return glb.Load(path)
	default:
		return stl.LoadFile(path, stl.ModeAuto)
	}
}

func run(modelPath string) error {
	var bgR, bgG, bgB uint8 = 30, 30, 40
	fmt.Sscanf(*bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)
	bg := render.RGB(bgR, bgG, bgB)

	mesh, err := loadModel(modelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	// Building the hierarchy up front also reorders faces for locality.
	tree := bvh.Build(mesh, *leafSize)

	fmt.Printf("Loaded: %s (%d vertices, %d faces)\n",
		filepath.Base(modelPath), mesh.VertexCount(), mesh.FaceCount())

	// Normalize the model into a 2-unit cube around the origin.
	center := mesh.Center()
	size := mesh.Bounds().Size()
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	normalize := math3d.Identity()
	if maxDim > 0 {
		scale := 2.0 / maxDim
		normalize = math3d.Scale(math3d.V3(scale, scale, scale)).
			Mul(math3d.Translate(center.Scale(-1)))
	}

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	termRenderer := render.NewTerminalRenderer(term, width, height)
	fbWidth, fbHeight := termRenderer.FramebufferSize()
	img := render.NewImage(fbWidth, fbHeight)
	depth := render.NewDepthBuffer(fbWidth, fbHeight)

	lightDir := math3d.V3(-0.5, -1, -0.3).Normalize()
	shaders := []render.Shader{
		render.DiffuseDirectional(lightDir, render.RGB(40, 40, 40), render.RGB(210, 210, 210)),
		render.Normal,
		render.Depth,
		render.Position(mesh.Bounds()),
	}
	cullModes := []render.CullMode{render.CullCW, render.CullCCW, render.CullNone}

	shaderIdx := 0
	cullIdx := 0
	showTree := false

	rotation := NewRotationState(*targetFPS)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	inputTorque := struct{ pitch, yaw, roll float64 }{}
	const torqueStrength = 3.0

	var mouseDown bool
	var lastMouseX, lastMouseY int
	cameraZ := 5.0

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				termRenderer = render.NewTerminalRenderer(term, width, height)
				fbWidth, fbHeight = termRenderer.FramebufferSize()
				img = render.NewImage(fbWidth, fbHeight)
				depth = render.NewDepthBuffer(fbWidth, fbHeight)

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape"), ev.MatchString("ctrl+c"):
					cancel()
					return
				case ev.MatchString("r"):
					rotation.Reset()
					cameraZ = 5.0
				case ev.MatchString("w", "up"):
					inputTorque.pitch = -torqueStrength
				case ev.MatchString("s", "down"):
					inputTorque.pitch = torqueStrength
				case ev.MatchString("a", "left"):
					inputTorque.yaw = -torqueStrength
				case ev.MatchString("d", "right"):
					inputTorque.yaw = torqueStrength
				case ev.MatchString("q"):
					inputTorque.roll = -torqueStrength
				case ev.MatchString("e"):
					inputTorque.roll = torqueStrength
				case ev.MatchString("space"):
					rotation.ApplyImpulse(
						(rand.Float64()-0.5)*1.5,
						(rand.Float64()-0.5)*1.5,
						(rand.Float64()-0.5)*1.5,
					)
				case ev.MatchString("+", "="):
					cameraZ = math.Max(1, cameraZ-0.5)
				case ev.MatchString("-", "_"):
					cameraZ = math.Min(20, cameraZ+0.5)
				case ev.MatchString("f"):
					shaderIdx = (shaderIdx + 1) % len(shaders)
				case ev.MatchString("c"):
					cullIdx = (cullIdx + 1) % len(cullModes)
				case ev.MatchString("b"):
					showTree = !showTree
				}

			case uv.KeyReleaseEvent:
				switch {
				case ev.MatchString("w"), ev.MatchString("up"), ev.MatchString("s"), ev.MatchString("down"):
					inputTorque.pitch = 0
				case ev.MatchString("a"), ev.MatchString("left"), ev.MatchString("d"), ev.MatchString("right"):
					inputTorque.yaw = 0
				case ev.MatchString("q"), ev.MatchString("e"):
					inputTorque.roll = 0
				}

			case uv.MouseClickEvent:
				mouseDown = true
				lastMouseX, lastMouseY = ev.X, ev.Y

			case uv.MouseReleaseEvent:
				mouseDown = false

			case uv.MouseMotionEvent:
				if mouseDown {
					dx := ev.X - lastMouseX
					dy := ev.Y - lastMouseY
					rotation.ApplyImpulse(float64(dy)*0.03, float64(dx)*0.03, 0)
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					cameraZ = math.Max(1, cameraZ-0.5)
				case uv.MouseWheelDown:
					cameraZ = math.Min(20, cameraZ+0.5)
				}
			}
		}
	}()

	targetDuration := time.Second / time.Duration(*targetFPS)
	lastFrame := time.Now()

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now

		if dt > 0.1 {
			dt = 0.1
		}

		// Apply input torque and decay it (key release events unreliable)
		rotation.ApplyImpulse(
			inputTorque.pitch*dt,
			inputTorque.yaw*dt,
			inputTorque.roll*dt,
		)
		inputTorque.pitch *= 0.9
		inputTorque.yaw *= 0.9
		inputTorque.roll *= 0.9

		rotation.Update()

		model := math3d.RotateX(rotation.Pitch.Position).
			Mul(math3d.RotateY(rotation.Yaw.Position)).
			Mul(math3d.RotateZ(rotation.Roll.Position)).
			Mul(normalize)

		view := math3d.LookAt(math3d.V3(0, 0, cameraZ), math3d.Zero3(), math3d.Up())
		proj := math3d.PerspectiveFov(math.Pi/3, float64(fbWidth), float64(fbHeight), 0.1, 100)
		mvp := proj.Mul(view).Mul(model)

		img.Clear(bg)
		depth.Clear()

		if showTree {
			render.CastRays(img, depth, tree, mvp, shaders[shaderIdx], bg)
		} else {
			render.Rasterize(img, depth, mesh, mvp, shaders[shaderIdx], cullModes[cullIdx])
		}

		termRenderer.Render(img)
		if err := termRenderer.Flush(); err != nil {
			cleanup()
			return fmt.Errorf("flush: %w", err)
		}

		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
