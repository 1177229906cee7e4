package acmi

// Common object property names. Any other name is accepted as-is.
const (
	PropName         = "Name"
	PropType         = "Type"
	PropParent       = "Parent"
	PropCallSign     = "CallSign"
	PropPilot        = "Pilot"
	PropGroup        = "Group"
	PropCountry      = "Country"
	PropCoalition    = "Coalition"
	PropColor        = "Color"
	PropShape        = "Shape"
	PropLabel        = "Label"
	PropImportance   = "Importance"
	PropHealth       = "Health"
	PropIAS          = "IAS"
	PropTAS          = "TAS"
	PropMach         = "Mach"
	PropAOA          = "AOA"
	PropAGL          = "AGL"
	PropHeading      = "HDG"
	PropThrottle     = "Throttle"
	PropFuelWeight   = "FuelWeight"
	PropLockedTarget = "LockedTarget"
)

// coordsName is the reserved property name for positional data.
const coordsName = "T"

// Property is one non-positional attribute of an object.
type Property struct {
	Name  string
	Value string
}

// PropertyList is an ordered set of properties with unique names.
type PropertyList []Property

// Get returns the value for name.
func (l PropertyList) Get(name string) (string, bool) {
	for _, p := range l {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing property in place, or appends it.
func (l PropertyList) Set(name, value string) PropertyList {
	for i := range l {
		if l[i].Name == name {
			l[i].Value = value
			return l
		}
	}
	return append(l, Property{Name: name, Value: value})
}

// Delete removes name, keeping the order of the remaining properties.
func (l PropertyList) Delete(name string) PropertyList {
	for i := range l {
		if l[i].Name == name {
			return append(l[:i], l[i+1:]...)
		}
	}
	return l
}

// Clone returns an independent copy of l.
func (l PropertyList) Clone() PropertyList {
	if l == nil {
		return nil
	}
	out := make(PropertyList, len(l))
	copy(out, l)
	return out
}
