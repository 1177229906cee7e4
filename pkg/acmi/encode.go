package acmi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AppendRecord appends the text form of r to dst, without a trailing newline.
// Only records accepted by Validate decode back to themselves.
func AppendRecord(dst []byte, r Record) []byte {
	switch r := r.(type) {
	case GlobalProperty:
		return r.appendTo(dst)
	case Frame:
		return r.appendTo(dst)
	case Update:
		return r.appendTo(dst)
	case Remove:
		return r.appendTo(dst)
	case Event:
		return r.appendTo(dst)
	case nil:
		panic("acmi: nil record")
	default:
		panic(fmt.Sprintf("acmi: unknown record type %T", r))
	}
}

// Encode returns the text form of r, without a trailing newline.
func Encode(r Record) string {
	return string(AppendRecord(nil, r))
}

func (g GlobalProperty) appendTo(dst []byte) []byte {
	dst = append(dst, "0,"...)
	dst = appendEscapedName(dst, string(g.Key))
	dst = append(dst, '=')
	return appendEscaped(dst, g.Value)
}

func (f Frame) appendTo(dst []byte) []byte {
	s := strconv.FormatFloat(float64(f), 'f', -1, 64)
	dst = append(dst, '#')
	dst = append(dst, s...)
	switch dot := strings.IndexByte(s, '.'); {
	case math.IsNaN(float64(f)) || math.IsInf(float64(f), 0):
	case dot < 0:
		dst = append(dst, ".00"...)
	case len(s)-dot == 2:
		dst = append(dst, '0')
	}
	return dst
}

func (u Update) appendTo(dst []byte) []byte {
	dst = strconv.AppendUint(dst, u.ID, 16)
	if u.Coords != nil {
		dst = append(dst, ",T="...)
		dst = u.Coords.appendTo(dst)
	}
	for _, p := range u.Props {
		dst = append(dst, ',')
		dst = appendEscapedName(dst, p.Name)
		dst = append(dst, '=')
		dst = appendEscaped(dst, p.Value)
	}
	return dst
}

func (r Remove) appendTo(dst []byte) []byte {
	dst = append(dst, '-')
	return strconv.AppendUint(dst, uint64(r), 16)
}

func (e Event) appendTo(dst []byte) []byte {
	dst = append(dst, "0,Event="...)
	dst = appendEscaped(dst, string(e.Kind))
	for _, p := range e.Params {
		dst = append(dst, '|')
		dst = appendEscaped(dst, p)
	}
	if e.Text != "" {
		dst = append(dst, '|')
		dst = appendEscaped(dst, e.Text)
	}
	return dst
}

func (g GlobalProperty) String() string { return string(g.appendTo(nil)) }
func (f Frame) String() string          { return string(f.appendTo(nil)) }
func (u Update) String() string         { return string(u.appendTo(nil)) }
func (r Remove) String() string         { return string(r.appendTo(nil)) }
func (e Event) String() string          { return string(e.appendTo(nil)) }
