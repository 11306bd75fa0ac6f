package annotate

// Mode selects how many ranked candidates are reported per region.
type Mode string

// Ambiguity modes.
const (
	// ModeBestAll reports every candidate tied with the top-ranked one.
	ModeBestAll Mode = "best_all"
	// ModeBestOne reports only the top-ranked candidate.
	ModeBestOne Mode = "best_one"
	// ModeAll reports every candidate in ranked order.
	ModeAll Mode = "all"
)

// Modes lists the supported ambiguity modes.
var Modes = []Mode{ModeBestAll, ModeBestOne, ModeAll}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeBestAll, ModeBestOne, ModeAll:
		return true
	}
	return false
}

// ParseMode converts a mode name into a Mode.
// Unrecognized names are a configuration error, never a silent default.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", &ConfigError{Field: "mode", Value: s, Reason: "must be one of best_all, best_one, all"}
	}
	return m, nil
}

// Resolve selects the candidates to report from a ranked list.
// The returned slice shares elements with ranked and preserves its order.
func Resolve(mode Mode, ranked []*Candidate) []*Candidate {
	if len(ranked) == 0 {
		return nil
	}

	switch mode {
	case ModeBestOne:
		return ranked[:1]
	case ModeAll:
		return ranked
	default:
		top := ranked[0].Key
		n := 1
		for n < len(ranked) && ranked[n].Key == top {
			n++
		}
		return ranked[:n]
	}
}
