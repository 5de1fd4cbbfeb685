// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package compositor

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
)

// Registry is the named, strata-ordered collection of surfaces the
// renderer walks. Mutated only from the loop thread. The dirty flag is
// the compositor's redraw request: any visible state change raises it,
// the next completed frame clears it.
type Registry struct {
	surfaces []*Surface
	dirty    bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add inserts a surface and restores draw order. Any existing surface
// with the same name must have been removed by the caller first (Remove
// hands back the carcasses so their GPU and mmap state can be released).
func (r *Registry) Add(s *Surface) {
	r.surfaces = append(r.surfaces, s)
	r.sort()
	r.dirty = true
	logrus.WithField("surface", s.name).Debugln("Surface registered")
}

// Remove detaches every surface with the given name and returns them.
// Absence is tolerated.
func (r *Registry) Remove(name string) []*Surface {
	removed := sliceutils.Filter(r.surfaces, func(s *Surface) bool {
		return s.name == name
	})
	if len(removed) == 0 {
		return nil
	}
	r.surfaces = sliceutils.Filter(r.surfaces, func(s *Surface) bool {
		return s.name != name
	})
	r.dirty = true
	logrus.WithField("surface", name).Debugln("Surface unregistered")
	return removed
}

// find returns the surface with the given name, logging unknown names.
// Unknown names are not an error: a client may race its own unregister.
func (r *Registry) find(name string) *Surface {
	for _, s := range r.surfaces {
		if s.name == name {
			return s
		}
	}
	logrus.WithField("surface", name).Debugln("Surface not registered")
	return nil
}

func (r *Registry) SetPosition(name string, x1, y1, x2, y2 int) {
	if s := r.find(name); s != nil {
		s.setPosition(x1, y1, x2, y2)
		r.dirty = true
		logrus.WithFields(logrus.Fields{
			"surface":  name,
			"position": []int{x1, y1, x2, y2},
		}).Debugln("Surface position changed")
	}
}

func (r *Registry) SetStrata(name string, strata int) {
	if s := r.find(name); s != nil {
		s.setStrata(strata)
		r.sort()
		r.dirty = true
		logrus.WithFields(logrus.Fields{
			"surface": name,
			"strata":  strata,
		}).Debugln("Surface strata changed")
	}
}

func (r *Registry) SetAlpha(name string, alpha float32) {
	if s := r.find(name); s != nil {
		s.setAlpha(alpha)
		r.dirty = true
		logrus.WithFields(logrus.Fields{
			"surface": name,
			"alpha":   alpha,
		}).Debugln("Surface alpha changed")
	}
}

// AddDamage enlarges a surface's pending damage. It does not raise the
// dirty flag; the texture update path reports the change when it uploads.
func (r *Registry) AddDamage(name string, x1, y1, x2, y2 int) {
	if s := r.find(name); s != nil {
		s.addDamage(x1, y1, x2, y2)
	}
}

// Surfaces is the draw-order view: ascending strata, insertion-stable.
func (r *Registry) Surfaces() []*Surface {
	return r.surfaces
}

// Names lists registered surface names in draw order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.surfaces))
	for _, s := range r.surfaces {
		names = append(names, s.name)
	}
	return names
}

func (r *Registry) Dirty() bool {
	return r.dirty
}

func (r *Registry) MarkDirty() {
	r.dirty = true
}

func (r *Registry) ClearDirty() {
	r.dirty = false
}

func (r *Registry) sort() {
	sort.SliceStable(r.surfaces, func(i, j int) bool {
		return r.surfaces[i].strata < r.surfaces[j].strata
	})
}
