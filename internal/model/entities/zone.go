package entities

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Zone is the angular range of the pivot rotation covered by an order.
type Zone string

const (
	ZoneUpperHalf Zone = "UPPER_HALF" // 0..180 degrees ("Alta")
	ZoneLowerHalf Zone = "LOWER_HALF" // 180..360 degrees ("Baixa")
	ZoneFull      Zone = "FULL"       // whole circle ("Total")
)

// Valid reports whether z is one of the closed set of zones.
func (z Zone) Valid() bool {
	switch z {
	case ZoneUpperHalf, ZoneLowerHalf, ZoneFull:
		return true
	}
	return false
}

// Letter is the short position label shown on the monitoring table.
func (z Zone) Letter() string {
	switch z {
	case ZoneUpperHalf:
		return "A"
	case ZoneLowerHalf:
		return "B"
	case ZoneFull:
		return "T"
	}
	return ""
}

// ParseZone maps the backend "parcela" column into a Zone.
// An empty value defaults to the upper half, like the operator console does.
func ParseZone(s string) (Zone, bool) {
	switch foldKey(s) {
	case "", "alta", "a", "upper", "upper half":
		return ZoneUpperHalf, true
	case "baixa", "b", "lower", "lower half":
		return ZoneLowerHalf, true
	case "total", "t", "full":
		return ZoneFull, true
	}
	return "", false
}

// Stage is the coarse three-way progress marker inside a zone.
type Stage string

const (
	StageStart  Stage = "START"
	StageMiddle Stage = "MIDDLE"
	StageEnd    Stage = "END"
)

func (s Stage) Valid() bool {
	switch s {
	case StageStart, StageMiddle, StageEnd:
		return true
	}
	return false
}

// Label returns the value the backend stores in "progresso_parcela".
func (s Stage) Label() string {
	switch s {
	case StageStart:
		return "Início"
	case StageMiddle:
		return "Meio"
	case StageEnd:
		return "Fim"
	}
	return ""
}

func ParseStage(s string) (Stage, bool) {
	switch foldKey(s) {
	case "inicio", "start":
		return StageStart, true
	case "meio", "middle":
		return StageMiddle, true
	case "fim", "end":
		return StageEnd, true
	}
	return "", false
}

// NormalizeAngle wraps any integer angle into [0, 360).
func NormalizeAngle(deg int) int {
	return ((deg % 360) + 360) % 360
}

// foldKey lowercases, strips diacritics and collapses separators so that
// "Concluída", "CONCLUIDA" and "concluida" compare equal.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.TrimSpace(out))
	return strings.Join(strings.FieldsFunc(out, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), " ")
}
