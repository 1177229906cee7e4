package main

import (
	"fmt"
	"math"

	"github.com/OCAP2/tacview/internal/geo"
	"github.com/OCAP2/tacview/internal/stream"
	"github.com/OCAP2/tacview/pkg/acmi"
)

const (
	orbitRadius   = 8000.0 // metres
	orbitPeriod   = 180.0  // seconds per lap
	sortieLength  = 300.0  // seconds before an aircraft is shot down and replaced
	baseAltitude  = 3000.0
	altitudeStep  = 500.0
	idsPerSlot    = 0x1000
	firstObjectID = 0x100
)

var callSigns = []string{"Viper", "Cobra", "Eagle", "Hawk", "Falcon", "Raptor"}

// demoHost simulates aircraft flying racetrack orbits around the projection
// origin. Each slot's aircraft is destroyed at the end of its sortie and a
// new one with a fresh id takes its place.
type demoHost struct {
	proj  geo.Projection
	slots []int // current sortie per slot, -1 before the first snapshot
}

func newDemoHost(proj geo.Projection, aircraft int) *demoHost {
	if aircraft < 0 {
		aircraft = 0
	}
	slots := make([]int, aircraft)
	for i := range slots {
		slots[i] = -1
	}
	return &demoHost{proj: proj, slots: slots}
}

func objectID(slot, sortie int) uint64 {
	return firstObjectID + uint64(slot)*idsPerSlot + uint64(sortie%idsPerSlot)
}

// Snapshot implements session.Source.
func (h *demoHost) Snapshot(frame float64) stream.Snapshot {
	snap := stream.Snapshot{Time: frame}
	for slot := range h.slots {
		offset := float64(slot) * sortieLength / float64(len(h.slots))
		sortie := int(math.Floor((frame + offset) / sortieLength))

		if prev := h.slots[slot]; prev >= 0 && prev != sortie {
			snap.Objects = append(snap.Objects, h.aircraft(slot, prev, frame, stream.Destroyed))
		}
		h.slots[slot] = sortie
		snap.Objects = append(snap.Objects, h.aircraft(slot, sortie, frame, stream.Alive))
	}
	return snap
}

func (h *demoHost) aircraft(slot, sortie int, frame float64, lc stream.Lifecycle) stream.Object {
	phase := 2*math.Pi*frame/orbitPeriod + 2*math.Pi*float64(slot)/float64(len(h.slots))
	east := orbitRadius * math.Cos(phase)
	north := orbitRadius * math.Sin(phase)
	lon, lat := h.proj.ToWGS84(east, north)

	// counter-clockwise orbit: compass track is the negated polar angle
	heading := math.Mod(360-math.Mod(phase*180/math.Pi, 360), 360)
	alt := baseAltitude + altitudeStep*float64(slot)

	c := acmi.Position(lon, lat, alt).WithOrientation(-25, 0, heading)

	coalition, color := "Allies", "Blue"
	if slot%2 == 1 {
		coalition, color = "Enemies", "Red"
	}
	callSign := fmt.Sprintf("%s %d-1", callSigns[slot%len(callSigns)], sortie+1)

	return stream.Object{
		ID:     objectID(slot, sortie),
		Coords: &c,
		Props: acmi.PropertyList{
			{Name: acmi.PropType, Value: "Air+FixedWing"},
			{Name: acmi.PropName, Value: "F-16C"},
			{Name: acmi.PropCallSign, Value: callSign},
			{Name: acmi.PropCoalition, Value: coalition},
			{Name: acmi.PropColor, Value: color},
			{Name: acmi.PropTAS, Value: fmt.Sprintf("%.1f", 2*math.Pi*orbitRadius/orbitPeriod)},
		},
		Lifecycle: lc,
	}
}
