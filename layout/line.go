package layout

// Measurer measures rendered text widths. Satisfied by *font.Face.
type Measurer interface {
	Advance(text string) float64
}

// Line is a row of words assigned to one boundary. Spacing is the gap
// drawn between consecutive words; justification adjusts it so the line
// spans its boundary exactly.
type Line struct {
	Boundary Boundary
	Spacing  float64
	Words    []string

	widths     []float64
	wordsWidth float64
}

// NewLine creates an empty line for the given boundary with an initial
// inter-word spacing.
func NewLine(b Boundary, spacing float64) *Line {
	return &Line{Boundary: b, Spacing: spacing}
}

// Append adds a word with its measured width.
func (l *Line) Append(word string, width float64) {
	l.Words = append(l.Words, word)
	l.widths = append(l.widths, width)
	l.wordsWidth += width
}

// WordsWidth returns the summed width of the words alone, without spacing.
func (l *Line) WordsWidth() float64 { return l.wordsWidth }

// WordWidth returns the measured width of the i-th word.
func (l *Line) WordWidth(i int) float64 { return l.widths[i] }

// Width returns the provisional line width used while words are being
// appended: word widths plus one spacing slot per word.
func (l *Line) Width() float64 {
	return l.wordsWidth + l.Spacing*float64(len(l.Words))
}

// Justify adjusts Spacing so the drawn line (words separated by Spacing)
// spans exactly target pixels. Lines with fewer than two words get zero
// spacing; rendering centers those instead. Spacing may come out slightly
// negative when the line was accepted with a small overflow.
func (l *Line) Justify(target float64) {
	if len(l.Words) > 1 {
		l.Spacing = (target - l.wordsWidth) / float64(len(l.Words)-1)
	} else {
		l.Spacing = 0
	}
}
