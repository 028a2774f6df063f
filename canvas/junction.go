package canvas

// arms records which sides of a cell a line leaves through.
type arms uint8

const (
	armN arms = 1 << iota
	armE
	armS
	armW
)

// lineRunes maps an arm set to the glyph drawn for it. Corners are rounded.
var lineRunes = map[arms]rune{
	armN:                      '│',
	armS:                      '│',
	armN | armS:               '│',
	armE:                      '─',
	armW:                      '─',
	armE | armW:               '─',
	armE | armS:               '╭',
	armS | armW:               '╮',
	armN | armE:               '╰',
	armN | armW:               '╯',
	armN | armE | armS:        '├',
	armN | armS | armW:        '┤',
	armE | armS | armW:        '┬',
	armN | armE | armW:        '┴',
	armN | armE | armS | armW: '┼',
}

// runeArms is the inverse of lineRunes, extended with the square corners
// used by box styles.
var runeArms = map[rune]arms{
	'┌': armE | armS,
	'┐': armS | armW,
	'└': armN | armE,
	'┘': armN | armW,
}

func init() {
	for a, r := range lineRunes {
		if a.count() == 1 {
			continue
		}
		runeArms[r] = a
	}
}

func (a arms) count() int {
	n := 0
	for b := armN; b <= armW; b <<= 1 {
		if a&b != 0 {
			n++
		}
	}
	return n
}

// Merge combines the glyph already in a cell with a new one.
// Arrowheads are never overwritten. Two line glyphs merge into the junction
// carrying both sets of arms. Anything else keeps the existing glyph.
func Merge(existing, next rune) rune {
	if existing == ' ' || existing == 0 {
		return next
	}
	if existing == next {
		return existing
	}
	if IsArrow(existing) {
		return existing
	}
	if IsArrow(next) {
		return next
	}
	a, okA := runeArms[existing]
	b, okB := runeArms[next]
	if !okA || !okB {
		return existing
	}
	switch union := a | b; union {
	case a:
		return existing
	case b:
		return next
	default:
		return lineRunes[union]
	}
}

// IsArrow reports whether r is an arrowhead glyph.
func IsArrow(r rune) bool {
	switch r {
	case '▶', '◀', '▲', '▼':
		return true
	}
	return false
}
