package plot

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/frame"
)

// Matrix is a labeled symmetric correlation matrix.
type Matrix struct {
	Labels []string
	Corr   *mat.SymDense
}

// CorrelationMatrix computes Pearson correlations between the given numeric
// columns, using the rows where both columns are present. Pairs with fewer
// than two complete rows, or with a constant column, are NaN.
func CorrelationMatrix(f *frame.Frame, columns []string) (Matrix, error) {
	if len(columns) < 2 {
		return Matrix{}, errors.New("correlation: need at least two columns")
	}
	data := make([][]float64, len(columns))
	for i, c := range columns {
		vals, err := f.Floats(c)
		if err != nil {
			return Matrix{}, err
		}
		data[i] = vals
	}

	corr := mat.NewSymDense(len(columns), nil)
	for i := range columns {
		corr.SetSym(i, i, 1)
		for j := i + 1; j < len(columns); j++ {
			x, y := completePairs(data[i], data[j])
			r := math.NaN()
			if len(x) >= 2 {
				r = stat.Correlation(x, y, nil)
			}
			corr.SetSym(i, j, r)
		}
	}
	return Matrix{Labels: append([]string(nil), columns...), Corr: corr}, nil
}

func completePairs(a, b []float64) ([]float64, []float64) {
	var x, y []float64
	for k := range a {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		x = append(x, a[k])
		y = append(y, b[k])
	}
	return x, y
}

// HeatmapOptions controls the correlation heatmap.
type HeatmapOptions struct {
	// Annotate writes each coefficient with two decimals.
	Annotate bool
	Size     Size
}

const (
	heatmapTitle   = "Correlation Matrix Heatmap"
	heatmapMarginL = 140
	heatmapMarginT = 60
	heatmapMarginR = 90
	heatmapMarginB = 40
	colorbarWidth  = 18
)

// Heatmap renders m as a square-celled heatmap on a coolwarm scale over
// [-1, 1], with a color bar.
func Heatmap(w io.Writer, m Matrix, opts HeatmapOptions) error {
	n := len(m.Labels)
	if n == 0 || m.Corr == nil || m.Corr.SymmetricDim() != n {
		return errors.New("heatmap: empty or mislabeled matrix")
	}
	size := opts.Size.orDefault(Size{Width: 1500, Height: 1000})

	r, err := chart.PNG(size.Width, size.Height)
	if err != nil {
		return err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("heatmap font: %w", err)
	}
	r.SetFont(font)

	fillRect(r, 0, 0, size.Width, size.Height, drawing.ColorWhite)

	avail := min(size.Width-heatmapMarginL-heatmapMarginR, size.Height-heatmapMarginT-heatmapMarginB)
	cell := avail / n
	if cell < 1 {
		return fmt.Errorf("heatmap: %dx%d image too small for %d columns", size.Width, size.Height, n)
	}
	left, top := heatmapMarginL, heatmapMarginT

	r.SetFontColor(drawing.ColorBlack)
	r.SetFontSize(16)
	tb := r.MeasureText(heatmapTitle)
	r.Text(heatmapTitle, left+(cell*n-tb.Width())/2, top-20)

	labelSize := math.Max(6, math.Min(12, float64(cell)/4))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.Corr.At(i, j)
			x, y := left+j*cell, top+i*cell
			fillRect(r, x, y, cell, cell, coolwarm(v))

			if opts.Annotate {
				txt := "nan"
				if !math.IsNaN(v) {
					txt = fmt.Sprintf("%.2f", v)
				}
				r.SetFontSize(labelSize)
				r.SetFontColor(annotationColor(v))
				b := r.MeasureText(txt)
				r.Text(txt, x+(cell-b.Width())/2, y+(cell+b.Height())/2)
			}
		}

		r.SetFontSize(labelSize)
		r.SetFontColor(drawing.ColorBlack)
		lb := r.MeasureText(m.Labels[i])
		r.Text(m.Labels[i], left-lb.Width()-6, top+i*cell+(cell+lb.Height())/2)
		r.Text(truncateLabel(r, m.Labels[i], cell), left+i*cell+2, top+n*cell+lb.Height()+6)
	}

	drawColorbar(r, left+n*cell+24, top, n*cell)
	return r.Save(w)
}

func drawColorbar(r chart.Renderer, x, top, height int) {
	if height <= 0 {
		return
	}
	for k := 0; k < height; k++ {
		v := 1 - 2*float64(k)/float64(height)
		fillRect(r, x, top+k, colorbarWidth, 1, coolwarm(v))
	}
	r.SetFontSize(9)
	r.SetFontColor(drawing.ColorBlack)
	for _, tick := range []float64{1, 0.5, 0, -0.5, -1} {
		y := top + int(float64(height)*(1-tick)/2)
		r.Text(fmt.Sprintf("%.1f", tick), x+colorbarWidth+4, y+4)
	}
}

func fillRect(r chart.Renderer, x, y, w, h int, c drawing.Color) {
	r.SetFillColor(c)
	r.SetStrokeWidth(0)
	r.MoveTo(x, y)
	r.LineTo(x+w, y)
	r.LineTo(x+w, y+h)
	r.LineTo(x, y+h)
	r.Close()
	r.Fill()
}

func truncateLabel(r chart.Renderer, label string, width int) string {
	runes := []rune(label)
	for len(runes) > 1 && r.MeasureText(string(runes)).Width() > width-4 {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

// Anchor colors of the diverging coolwarm palette.
var (
	coolLow  = [3]float64{59, 76, 192}
	coolMid  = [3]float64{221, 221, 221}
	coolHigh = [3]float64{180, 4, 38}
)

// coolwarm maps v in [-1, 1] onto the diverging palette; NaN is gray.
func coolwarm(v float64) drawing.Color {
	if math.IsNaN(v) {
		return drawing.ColorFromHex("bfbfbf")
	}
	v = math.Max(-1, math.Min(1, v))
	from, to, t := coolLow, coolMid, v+1
	if v > 0 {
		from, to, t = coolMid, coolHigh, v
	}
	mix := func(k int) uint8 {
		return uint8(math.Round(from[k] + (to[k]-from[k])*t))
	}
	return drawing.Color{R: mix(0), G: mix(1), B: mix(2), A: 255}
}

func annotationColor(v float64) drawing.Color {
	if !math.IsNaN(v) && math.Abs(v) > 0.6 {
		return drawing.ColorWhite
	}
	return drawing.ColorBlack
}
