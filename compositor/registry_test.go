package compositor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dogelands/sparkle/geom"
	"github.com/dogelands/sparkle/shm"
)

func fileSurface(t *testing.T, name string, w, h int) *Surface {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, w*h*shm.BytesPerPixel), 0o644); err != nil {
		t.Fatalf("writing pixel file: %s", err)
	}
	s, err := NewFileSurface(name, path, w, h)
	if err != nil {
		t.Fatalf("mapping surface: %s", err)
	}
	t.Cleanup(s.release)
	return s
}

func TestRegistryNamesAreUnique(t *testing.T) {
	r := NewRegistry()
	r.Add(fileSurface(t, "a", 2, 2))

	// Re-registering a name removes the old surface first.
	old := r.Remove("a")
	if len(old) != 1 {
		t.Fatalf("expected one removed surface, got %d", len(old))
	}
	r.Add(fileSurface(t, "a", 4, 4))

	seen := map[string]int{}
	for _, s := range r.Surfaces() {
		seen[s.Name()]++
	}
	if seen["a"] != 1 {
		t.Errorf("name registered %d times", seen["a"])
	}
}

func TestRegistryRemoveToleratesAbsence(t *testing.T) {
	r := NewRegistry()
	if removed := r.Remove("ghost"); removed != nil {
		t.Errorf("removing an unknown name returned %v", removed)
	}
}

func TestRegistryDrawOrderIsStable(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		r.Add(fileSurface(t, name, 2, 2))
	}
	// Equal strata: insertion order is the tie-break.
	if got := r.Names(); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("draw order %v", got)
	}

	r.SetStrata("a", 2)
	if got := r.Names(); got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Errorf("draw order after restrata %v", got)
	}

	// Strata never decreases along the draw order.
	last := r.Surfaces()[0].Strata()
	for _, s := range r.Surfaces() {
		if s.Strata() < last {
			t.Errorf("draw order is not sorted by strata")
		}
		last = s.Strata()
	}
}

func TestRegistrySettersMarkDirty(t *testing.T) {
	r := NewRegistry()
	r.Add(fileSurface(t, "a", 2, 2))
	r.ClearDirty()

	r.SetPosition("a", 0, 0, 10, 10)
	if !r.Dirty() {
		t.Errorf("SetPosition did not mark dirty")
	}
	r.ClearDirty()

	r.SetAlpha("a", 0.5)
	if !r.Dirty() {
		t.Errorf("SetAlpha did not mark dirty")
	}
	r.ClearDirty()

	// Damage alone defers dirtiness to the texture update.
	r.AddDamage("a", 0, 0, 1, 1)
	if r.Dirty() {
		t.Errorf("AddDamage marked dirty directly")
	}
}

func TestRegistryUnknownNamesIgnored(t *testing.T) {
	r := NewRegistry()
	r.SetPosition("ghost", 0, 0, 1, 1)
	r.SetStrata("ghost", 1)
	r.SetAlpha("ghost", 0.5)
	r.AddDamage("ghost", 0, 0, 1, 1)
	if r.Dirty() {
		t.Errorf("operations on unknown names changed state")
	}
}

func TestSurfaceAlphaClamped(t *testing.T) {
	s := fileSurface(t, "a", 2, 2)
	s.setAlpha(1.5)
	if s.Alpha() != 1 {
		t.Errorf("alpha %f, want 1", s.Alpha())
	}
	s.setAlpha(-0.5)
	if s.Alpha() != 0 {
		t.Errorf("alpha %f, want 0", s.Alpha())
	}
}

func TestSurfaceDamageUnion(t *testing.T) {
	s := fileSurface(t, "a", 8, 8)

	s.addDamage(1, 1, 2, 2)
	s.addDamage(4, 5, 6, 7)
	if want := geom.MakeRect(1, 1, 6, 7); s.Damage() != want {
		t.Errorf("damage %+v, want %+v", s.Damage(), want)
	}

	// Idempotent under repetition.
	before := s.Damage()
	s.addDamage(1, 1, 2, 2)
	if s.Damage() != before {
		t.Errorf("repeated damage changed the union")
	}

	// Clamped to the source bounds.
	s.addDamage(-5, -5, 100, 100)
	if want := geom.MakeRect(0, 0, 8, 8); s.Damage() != want {
		t.Errorf("clamped damage %+v, want %+v", s.Damage(), want)
	}
}

func TestSurfaceUpdateTextureConsumesDamage(t *testing.T) {
	glc := newFakeGL()
	s := fileSurface(t, "a", 4, 4)

	// First update creates and fully uploads the texture.
	if !s.updateTexture(glc) {
		t.Fatalf("initial update reported no change")
	}
	if len(glc.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(glc.uploads))
	}
	if glc.uploads[0].bytes != 4*4*shm.BytesPerPixel {
		t.Errorf("initial upload of %d bytes", glc.uploads[0].bytes)
	}
	if !s.Damage().Empty() {
		t.Errorf("damage not consumed: %+v", s.Damage())
	}

	// No damage, no work.
	if s.updateTexture(glc) {
		t.Errorf("clean update reported a change")
	}

	// A damaged row band uploads full-width rows only.
	s.addDamage(1, 1, 3, 3)
	if !s.updateTexture(glc) {
		t.Fatalf("damaged update reported no change")
	}
	up := glc.uploads[len(glc.uploads)-1]
	if up.x != 0 || up.y != 1 || up.w != 4 || up.h != 2 {
		t.Errorf("band upload %+v", up)
	}
	if up.bytes != 4*2*shm.BytesPerPixel {
		t.Errorf("band upload of %d bytes", up.bytes)
	}
	if !s.Damage().Empty() {
		t.Errorf("damage not consumed after band upload")
	}
}
