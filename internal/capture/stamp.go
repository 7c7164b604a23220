package capture

import "github.com/hpungsan/lamina/internal/record"

// stamps holds placed stamps; its undo history is independent of ink.
type stamps struct {
	placed []record.Stamp
}

func (s *stamps) place(p record.Point) {
	s.placed = append(s.placed, record.Stamp(p))
}

func (s *stamps) undo() bool {
	if len(s.placed) == 0 {
		return false
	}
	s.placed = s.placed[:len(s.placed)-1]
	return true
}

func (s *stamps) clear() {
	s.placed = nil
}

func (s *stamps) snapshot() []record.Stamp {
	return append([]record.Stamp{}, s.placed...)
}
