package acmi

import (
	"fmt"
	"strconv"
	"strings"
)

// DecodeLine parses one logical line. Blank and comment lines yield no
// records; a global line carrying several properties yields one record
// per property.
func DecodeLine(line string) ([]Record, error) {
	return appendDecoded(nil, line)
}

func appendDecoded(dst []Record, line string) ([]Record, error) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "//") {
		return dst, nil
	}

	switch line[0] {
	case '#':
		v, err := strconv.ParseFloat(line[1:], 64)
		if err != nil {
			return dst, fmt.Errorf("%w: frame %q", ErrInvalidNumeric, line[1:])
		}
		return append(dst, Frame(v)), nil
	case '-':
		id, err := ParseID(line[1:])
		if err != nil {
			return dst, fmt.Errorf("%w: %q", err, line[1:])
		}
		return append(dst, Remove(id)), nil
	}

	rawID, rest, found := strings.Cut(line, ",")
	id, err := ParseID(rawID)
	if err != nil {
		return dst, fmt.Errorf("%w: %q", err, rawID)
	}
	if id == GlobalID {
		if !found {
			return dst, missingDelimiter(',', line)
		}
		return appendGlobals(dst, rest)
	}

	u := Update{ID: id}
	if found {
		if err := u.decodeProps(rest); err != nil {
			return dst, err
		}
	}
	return append(dst, u), nil
}

// cutProperty splits an escaped Name=Value segment.
func cutProperty(seg string) (name, value string, err error) {
	i := 0
	for ; i < len(seg); i++ {
		if seg[i] == '\\' {
			i++
			continue
		}
		if seg[i] == '=' {
			return seg[:i], seg[i+1:], nil
		}
	}
	return "", "", missingDelimiter('=', seg)
}

func appendGlobals(dst []Record, rest string) ([]Record, error) {
	for _, seg := range splitEscaped(rest, ',') {
		name, value, err := cutProperty(seg)
		if err != nil {
			return dst, err
		}
		if name == eventKey {
			ev, err := parseEvent(value)
			if err != nil {
				return dst, err
			}
			dst = append(dst, ev)
			continue
		}
		dst = append(dst, GlobalProperty{Key: GlobalKey(Unescape(name)), Value: Unescape(value)})
	}
	return dst, nil
}

func (u *Update) decodeProps(rest string) error {
	for _, seg := range splitEscaped(rest, ',') {
		name, value, err := cutProperty(seg)
		if err != nil {
			return err
		}
		if name == coordsName {
			c, err := ParseCoords(value)
			if err != nil {
				return err
			}
			u.Coords = &c
			continue
		}
		u.Props = append(u.Props, Property{Name: Unescape(name), Value: Unescape(value)})
	}
	return nil
}

func parseEvent(raw string) (Event, error) {
	fields := splitEscaped(raw, '|')
	kind := EventKind(Unescape(fields[0]))
	arity, ok := kind.Arity()
	if !ok {
		return Event{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, kind)
	}
	rest := fields[1:]
	if len(rest) < arity || len(rest) > arity+1 {
		return Event{}, fmt.Errorf("%w: %s takes %d parameters, got %d fields", ErrInvalidEvent, kind, arity, len(rest))
	}

	ev := Event{Kind: kind}
	for _, p := range rest[:arity] {
		ev.Params = append(ev.Params, Unescape(p))
	}
	if len(rest) > arity {
		ev.Text = Unescape(rest[arity])
	}
	return ev, nil
}
