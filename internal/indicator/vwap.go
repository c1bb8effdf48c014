package indicator

import (
	"IndexSentinel/internal/model"
	"IndexSentinel/internal/resample"
)

// VWAP returns the running Σ(typical·volume)/Σ(volume). With sessionReset the sums
// restart at each local calendar day. While cumulative volume is zero the bar's
// typical price is used.
func VWAP(bars []model.OHLCV, sessionReset bool) []float64 {
	out := make([]float64, len(bars))
	day := resample.MustParse("D")
	var pv, vol float64
	for i, b := range bars {
		if sessionReset && i > 0 && !day.Floor(b.Time).Equal(day.Floor(bars[i-1].Time)) {
			pv, vol = 0, 0
		}
		tp := b.Typical()
		pv += tp * b.Volume
		vol += b.Volume
		if vol > 0 {
			out[i] = pv / vol
		} else {
			out[i] = tp
		}
	}
	return out
}
