package compositor

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dogelands/sparkle/packet"
	"github.com/dogelands/sparkle/shm"
)

// ashmemFile builds a memfd-backed pixel store, the same shape a client
// would pass over the socket.
func ashmemFile(t *testing.T, pixels []byte) *os.File {
	t.Helper()
	fd, err := unix.MemfdCreate("sparkle-test", unix.MFD_CLOEXEC)
	if err != nil {
		t.Skipf("memfd_create unavailable: %s", err)
	}
	f := os.NewFile(uintptr(fd), "sparkle-test")
	if err := f.Truncate(int64(len(pixels))); err != nil {
		t.Fatalf("truncate: %s", err)
	}
	if _, err := f.WriteAt(pixels, 0); err != nil {
		t.Fatalf("fill: %s", err)
	}
	return f
}

func (h *harness) registerAshmem(name string, pixels []byte, w, hgt int) {
	h.t.Helper()
	f := ashmemFile(h.t, pixels)
	h.run(func() {
		s, err := NewAshmemSurface(name, f, w, hgt)
		if err != nil {
			h.t.Errorf("mapping ashmem surface: %s", err)
			return
		}
		h.comp.adopt(s)
	})
}

func (h *harness) registerFile(name string, w, hgt int) {
	h.t.Helper()
	path := filepath.Join(h.t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, w*hgt*shm.BytesPerPixel), 0o644); err != nil {
		h.t.Fatalf("writing pixel file: %s", err)
	}
	h.run(func() { h.comp.registerSurfaceFile(name, path, w, hgt) })
}

func TestRegisterAndDraw(t *testing.T) {
	h := newHarness(t)
	h.startWindow()

	// 2x2 BGRA: red, green, blue, white.
	pixels := []byte{
		0, 0, 255, 255, 0, 255, 0, 255,
		255, 0, 0, 255, 255, 255, 255, 255,
	}
	h.registerAshmem("a", pixels, 2, 2)
	h.run(func() {
		h.comp.registry.SetPosition("a", 0, 0, 2, 2)
		h.comp.registry.AddDamage("a", 0, 0, 2, 2)
	})

	h.draw()

	if len(h.glc.uploads) != 1 {
		t.Fatalf("expected exactly one upload, got %d", len(h.glc.uploads))
	}
	if h.glc.uploads[0].bytes != 16 {
		t.Errorf("uploaded %d bytes, want 16", h.glc.uploads[0].bytes)
	}
	if h.ctx.swaps != 1 {
		t.Errorf("swapped %d times, want 1", h.ctx.swaps)
	}
	h.run(func() {
		if h.comp.registry.Dirty() {
			t.Errorf("redraw flag still set after the frame")
		}
	})

	// Nothing changed: the next tick neither draws nor swaps.
	h.draw()
	if h.ctx.swaps != 1 {
		t.Errorf("clean frame swapped anyway")
	}
}

func TestStrataOrdering(t *testing.T) {
	h := newHarness(t)
	h.startWindow()

	h.registerFile("a", 2, 2)
	h.registerFile("b", 2, 2)
	h.run(func() {
		h.comp.registry.SetPosition("a", 0, 0, 800, 600)
		h.comp.registry.SetPosition("b", 0, 0, 800, 600)
		h.comp.registry.SetStrata("b", 1)
	})

	h.draw()

	var aTex, bTex uint32
	h.run(func() {
		for _, s := range h.comp.registry.Surfaces() {
			switch s.Name() {
			case "a":
				aTex = s.tex.id.Value
			case "b":
				bTex = s.tex.id.Value
			}
		}
	})

	if len(h.glc.draws) != 2 {
		t.Fatalf("drew %d quads, want 2", len(h.glc.draws))
	}
	if h.glc.draws[0].tex != aTex || h.glc.draws[1].tex != bTex {
		t.Errorf("draw order was [%d %d], want [a=%d b=%d]",
			h.glc.draws[0].tex, h.glc.draws[1].tex, aTex, bTex)
	}

	// Raising a above b reverses the order.
	h.run(func() { h.comp.registry.SetStrata("a", 2) })
	h.glc.draws = nil
	h.draw()

	if len(h.glc.draws) != 2 {
		t.Fatalf("drew %d quads after restrata", len(h.glc.draws))
	}
	if h.glc.draws[0].tex != bTex || h.glc.draws[1].tex != aTex {
		t.Errorf("draw order after restrata was [%d %d], want [b=%d a=%d]",
			h.glc.draws[0].tex, h.glc.draws[1].tex, bTex, aTex)
	}
}

func TestAlphaBlendingGate(t *testing.T) {
	h := newHarness(t)
	h.startWindow()

	h.registerFile("a", 2, 2)
	h.registerFile("b", 2, 2)
	h.run(func() {
		h.comp.registry.SetStrata("b", 1)
		h.comp.registry.SetAlpha("a", 0.5)
	})

	h.draw()

	if len(h.glc.draws) != 2 {
		t.Fatalf("drew %d quads, want 2", len(h.glc.draws))
	}
	if !h.glc.draws[0].blend {
		t.Errorf("blending disabled during the translucent surface's draw")
	}
	if h.glc.draws[0].alpha != 0.5 {
		t.Errorf("alpha uniform was %f during the translucent draw", h.glc.draws[0].alpha)
	}
	if h.glc.draws[1].blend {
		t.Errorf("blending leaked into the opaque surface's draw")
	}
	if h.glc.blend {
		t.Errorf("blending left enabled after the frame")
	}
}

func readDisplaySize(t *testing.T, conn *net.UnixConn, acc *[]byte) *packet.DisplaySize {
	t.Helper()
	buf := make([]byte, 4096)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if p, used, err := packet.Deframe(*acc); err != nil {
			t.Fatalf("deframing notification: %s", err)
		} else if p != nil {
			*acc = (*acc)[used:]
			msg, err := packet.Unmarshal(p)
			if err != nil {
				t.Fatalf("decoding notification: %s", err)
			}
			if ds, ok := msg.(*packet.DisplaySize); ok {
				return ds
			}
			continue
		}
		conn.SetReadDeadline(deadline)
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("reading notification: %s", err)
		}
		*acc = append(*acc, buf[:n]...)
	}
}

func TestDisplayResizeBroadcast(t *testing.T) {
	h := newHarness(t)
	h.startWindow()

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: h.sock, Net: "unix"})
	if err != nil {
		t.Fatalf("dialing compositor: %s", err)
	}
	defer conn.Close()

	var acc []byte
	// Connecting clients are told the current size right away.
	if ds := readDisplaySize(t, conn, &acc); ds.Width != 800 || ds.Height != 600 {
		t.Errorf("connect notification %dx%d, want 800x600", ds.Width, ds.Height)
	}

	h.run(func() {
		h.ctx.w = 1024
		h.ctx.h = 768
	})
	h.draw()

	if ds := readDisplaySize(t, conn, &acc); ds.Width != 1024 || ds.Height != 768 {
		t.Errorf("resize notification %dx%d, want 1024x768", ds.Width, ds.Height)
	}

	// Exactly one: the next read would block.
	conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	extra := make([]byte, 16)
	if n, err := conn.Read(extra); err == nil && n > 0 {
		t.Errorf("unexpected extra notification bytes after resize")
	}
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	h := newHarness(t)
	h.startWindow()
	h.registerFile("a", 2, 2)

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: h.sock, Net: "unix"})
	if err != nil {
		t.Fatalf("dialing compositor: %s", err)
	}
	defer conn.Close()

	bogus := (&packet.Packet{Op: 9999, Payload: []byte{1, 2, 3}}).Frame()
	valid := packet.Marshal(&packet.UnregisterSurface{Name: "a"}).Frame()
	if _, err := conn.Write(append(bogus, valid...)); err != nil {
		t.Fatalf("writing frames: %s", err)
	}

	// The unknown opcode is dropped, the unregister still lands.
	h.waitFor("surface unregistered", func() bool {
		return len(h.comp.registry.Surfaces()) == 0
	})
	h.run(func() {
		if h.comp.server.Connections() != 1 {
			t.Errorf("connection dropped over an unknown opcode")
		}
	})
}

func TestWindowTeardownDropsTextures(t *testing.T) {
	h := newHarness(t)
	h.startWindow()
	h.registerFile("a", 2, 2)
	h.draw()

	h.run(func() {
		if h.comp.registry.Surfaces()[0].tex.id.Value == 0 {
			t.Fatalf("surface has no texture after draw")
		}
	})

	h.plat.FinishWindow()
	h.barrier()

	h.run(func() {
		// Surfaces survive, their GPU shadows do not.
		if len(h.comp.registry.Surfaces()) != 1 {
			t.Errorf("surfaces vanished with the window")
		}
		if h.comp.registry.Surfaces()[0].tex.id.Value != 0 {
			t.Errorf("texture survived the window teardown")
		}
	})
	if !h.ctx.closed {
		t.Errorf("window context not closed")
	}

	// Draw ticks without a context are ignored.
	h.draw()
}
