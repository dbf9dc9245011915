package formulagraph

import "time"

// LazilyTransformingAstService is the log of structural edits. Every edit
// bumps the version; formulas and column index entries remember the version
// they were last synced at and replay only the transformers after it.
type LazilyTransformingAstService struct {
	log   []Transformer
	stats *Statistics
}

// NewLazilyTransformingAstService creates an empty log.
func NewLazilyTransformingAstService(stats *Statistics) *LazilyTransformingAstService {
	return &LazilyTransformingAstService{stats: stats}
}

// Version returns the number of edits logged so far.
func (s *LazilyTransformingAstService) Version() int { return len(s.log) }

func (s *LazilyTransformingAstService) add(t Transformer) {
	s.log = append(s.log, t)
}

// since returns the transformers logged after version.
func (s *LazilyTransformingAstService) since(version int) []Transformer {
	if version >= len(s.log) {
		return nil
	}
	return s.log[version:]
}

// Apply brings a formula from version up to date, rewriting ast in place. It
// returns the formula's current address and version.
func (s *LazilyTransformingAstService) Apply(ast *Ast, address SimpleCellAddress, version int) (SimpleCellAddress, int) {
	pending := s.since(version)
	if len(pending) == 0 {
		return address, version
	}
	start := time.Now()
	for _, t := range pending {
		address = t.Transform(ast, address)
	}
	if s.stats != nil {
		s.stats.add(statTransform, time.Since(start))
	}
	return address, s.Version()
}

// rowEdits returns the row insertions and deletions of sheet logged after
// version.
func (s *LazilyTransformingAstService) rowEdits(sheet, version int) []*spanTransformer {
	var out []*spanTransformer
	for _, t := range s.since(version) {
		if st, ok := t.(*spanTransformer); ok && st.ax == rowAxis && st.span.Sheet == sheet {
			out = append(out, st)
		}
	}
	return out
}
