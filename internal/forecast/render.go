package forecast

import "io"

// Drawer turns a Plot into an image.
type Drawer interface {
	Draw(w io.Writer, p Plot) error
}

// Render selects the series for q and draws it to w. It returns false, and
// draws nothing, when no rows match or the match holds nothing plottable.
// Drawing failures are returned unchanged.
func (s *Selector) Render(w io.Writer, t Table, q Query, d Drawer) (bool, error) {
	sel, ok, err := s.Select(t, q)
	if err != nil || !ok {
		return false, err
	}
	p := sel.Plot()
	if p.Empty() {
		s.log.Info().
			Str("subject_id", q.SubjectID).
			Str("metric", q.Metric).
			Msg("selector matched rows without plottable values")
		return false, nil
	}
	if err := d.Draw(w, p); err != nil {
		return false, err
	}
	return true, nil
}
