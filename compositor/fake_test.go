package compositor

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/mobile/gl"

	"github.com/dogelands/sparkle/loop"
	"github.com/dogelands/sparkle/platform"
	"github.com/dogelands/sparkle/platform/headless"
)

// fakeGL records the pipeline calls the renderer makes. Only the methods
// the renderer uses are implemented; everything else panics through the
// embedded nil interface, which is exactly what a test wants.
type fakeGL struct {
	gl.Context

	nextID uint32
	bound  uint32

	uploads []upload
	draws   []drawCall
	clears  int

	blend bool
	alpha float32
}

type upload struct {
	tex        uint32
	x, y, w, h int
	bytes      int
}

type drawCall struct {
	tex   uint32
	blend bool
	alpha float32
}

func newFakeGL() *fakeGL {
	return &fakeGL{alpha: 1}
}

func (f *fakeGL) id() uint32 {
	f.nextID++
	return f.nextID
}

func (f *fakeGL) CreateShader(ty gl.Enum) gl.Shader { return gl.Shader{Value: f.id()} }
func (f *fakeGL) ShaderSource(s gl.Shader, src string) {}
func (f *fakeGL) CompileShader(s gl.Shader) {}
func (f *fakeGL) GetShaderi(s gl.Shader, pname gl.Enum) int { return 1 }
func (f *fakeGL) GetShaderInfoLog(s gl.Shader) string { return "" }
func (f *fakeGL) CreateProgram() gl.Program { return gl.Program{Init: true, Value: f.id()} }
func (f *fakeGL) AttachShader(p gl.Program, s gl.Shader) {}
func (f *fakeGL) LinkProgram(p gl.Program) {}
func (f *fakeGL) GetProgrami(p gl.Program, pname gl.Enum) int { return 1 }
func (f *fakeGL) GetProgramInfoLog(p gl.Program) string { return "" }
func (f *fakeGL) GetAttribLocation(p gl.Program, name string) gl.Attrib {
	return gl.Attrib{Value: uint(f.id())}
}
func (f *fakeGL) GetUniformLocation(p gl.Program, name string) gl.Uniform {
	return gl.Uniform{Value: int32(f.id())}
}
func (f *fakeGL) CreateBuffer() gl.Buffer { return gl.Buffer{Value: f.id()} }

func (f *fakeGL) BindFramebuffer(target gl.Enum, fb gl.Framebuffer) {}
func (f *fakeGL) Viewport(x, y, width, height int) {}
func (f *fakeGL) ClearColor(red, green, blue, alpha float32) {}
func (f *fakeGL) Clear(mask gl.Enum) { f.clears++ }
func (f *fakeGL) UseProgram(p gl.Program) {}
func (f *fakeGL) BindBuffer(target gl.Enum, b gl.Buffer) {}
func (f *fakeGL) BufferData(target gl.Enum, src []byte, usage gl.Enum) {}
func (f *fakeGL) VertexAttribPointer(dst gl.Attrib, size int, ty gl.Enum, normalized bool, stride, offset int) {
}
func (f *fakeGL) EnableVertexAttribArray(a gl.Attrib) {}
func (f *fakeGL) DisableVertexAttribArray(a gl.Attrib) {}
func (f *fakeGL) Uniform1f(dst gl.Uniform, v float32) { f.alpha = v }
func (f *fakeGL) Enable(cap gl.Enum) {
	if cap == gl.BLEND {
		f.blend = true
	}
}
func (f *fakeGL) Disable(cap gl.Enum) {
	if cap == gl.BLEND {
		f.blend = false
	}
}
func (f *fakeGL) BlendFunc(sfactor, dfactor gl.Enum) {}
func (f *fakeGL) Finish() {}

func (f *fakeGL) CreateTexture() gl.Texture { return gl.Texture{Value: f.id()} }
func (f *fakeGL) DeleteTexture(v gl.Texture) {}
func (f *fakeGL) ActiveTexture(texture gl.Enum) {}

func (f *fakeGL) BindTexture(target gl.Enum, t gl.Texture) { f.bound = t.Value }

func (f *fakeGL) TexParameteri(target, pname gl.Enum, param int) {}

func (f *fakeGL) TexImage2D(target gl.Enum, level int, internalFormat int, width, height int, format gl.Enum, ty gl.Enum, data []byte) {
}

func (f *fakeGL) TexSubImage2D(target gl.Enum, level int, x, y, width, height int, format, ty gl.Enum, data []byte) {
	f.uploads = append(f.uploads, upload{
		tex: f.bound, x: x, y: y, w: width, h: height, bytes: len(data),
	})
}

func (f *fakeGL) DrawArrays(mode gl.Enum, first, count int) {
	f.draws = append(f.draws, drawCall{tex: f.bound, blend: f.blend, alpha: f.alpha})
}

func (f *fakeGL) DeleteBuffer(v gl.Buffer) {}
func (f *fakeGL) DeleteProgram(p gl.Program) {}
func (f *fakeGL) DeleteShader(s gl.Shader) {}

// fakeCtx is the window context port backed by fakeGL.
type fakeCtx struct {
	glc    *fakeGL
	w, h   int
	swaps  int
	closed bool
}

func (c *fakeCtx) GL() gl.Context { return c.glc }
func (c *fakeCtx) Size() (int, int) { return c.w, c.h }
func (c *fakeCtx) Swap() error {
	c.swaps++
	return nil
}
func (c *fakeCtx) Close() { c.closed = true }

type fakeDisplay struct {
	ctx *fakeCtx
}

func (d *fakeDisplay) VisualID() (int, error) { return 7, nil }
func (d *fakeDisplay) CreateWindowContext(win platform.NativeWindow) (WindowContext, error) {
	return d.ctx, nil
}
func (d *fakeDisplay) Close() {}

type fakeOpener struct {
	display *fakeDisplay
}

func (o *fakeOpener) OpenDisplay(d platform.NativeDisplay) (Display, error) {
	return o.display, nil
}

// harness stands a full compositor up on a running loop with the fake GL
// stack and the headless platform.
type harness struct {
	t    *testing.T
	loop *loop.Loop
	plat *headless.Headless
	comp *Compositor
	glc  *fakeGL
	ctx  *fakeCtx
	sock string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	l, err := loop.New()
	if err != nil {
		t.Fatalf("creating loop: %s", err)
	}

	glc := newFakeGL()
	ctx := &fakeCtx{glc: glc, w: 800, h: 600}
	plat := headless.New()
	sock := filepath.Join(t.TempDir(), "sparkle.socket")

	comp, err := New(l, plat, &fakeOpener{display: &fakeDisplay{ctx: ctx}}, Options{
		SocketPath: sock,
		EnableEcho: true,
	})
	if err != nil {
		t.Fatalf("creating compositor: %s", err)
	}

	l.RunThread()
	h := &harness{t: t, loop: l, plat: plat, comp: comp, glc: glc, ctx: ctx, sock: sock}
	t.Cleanup(func() {
		l.Exit()
		l.Wait()
		l.Close()
	})
	return h
}

// startWindow walks the platform lifecycle up to a live GL context.
func (h *harness) startWindow() {
	h.plat.EmitDisplay(nil)
	h.plat.EmitWindow(nil)
	h.barrier()
}

// barrier flushes the loop's call queue (and with it all queued signal
// deliveries emitted before it).
func (h *harness) barrier() {
	h.t.Helper()
	done := make(chan struct{})
	h.loop.Queue(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		h.t.Fatalf("compositor loop did not drain")
	}
}

// run executes fn on the loop thread and waits for it.
func (h *harness) run(fn func()) {
	h.t.Helper()
	h.loop.Queue(fn)
	h.barrier()
}

// waitFor polls a condition on the loop thread.
func (h *harness) waitFor(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ok := make(chan bool, 1)
		h.loop.Queue(func() { ok <- cond() })
		select {
		case v := <-ok:
			if v {
				return
			}
		case <-time.After(time.Second):
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) draw() {
	h.plat.EmitDraw()
	h.barrier()
}
