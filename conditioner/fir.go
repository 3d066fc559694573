package conditioner

import (
	"math"
	"sync"

	"github.com/BenLubar/memoize"
)

// KaiserBeta sets the sidelobe attenuation of the FIR lowpass window.
const KaiserBeta = 5.0

var memoizedLowpass = memoize.Memoize(lowpassTaps)

// memoize does not document concurrent use, so calls are serialized.
var tapsMu sync.Mutex

// LowpassTaps designs a linear-phase lowpass filter of numTaps coefficients
// whose cutoff is given as a fraction of the Nyquist frequency. Designs are
// cached; the returned slice is shared and must not be modified.
func LowpassTaps(numTaps int, nyquistFraction, beta float64) []float64 {
	tapsMu.Lock()
	defer tapsMu.Unlock()

	return memoizedLowpass.(func(int, float64, float64) []float64)(numTaps, nyquistFraction, beta)
}

// lowpassTaps is the windowed-sinc design, normalized to unit gain at DC.
func lowpassTaps(numTaps int, nyquistFraction, beta float64) []float64 {
	out := make([]float64, numTaps)
	alpha := 0.5 * float64(numTaps-1)
	win := kaiser(numTaps, beta)

	sum := 0.0
	for i := range out {
		m := float64(i) - alpha
		out[i] = nyquistFraction * sinc(nyquistFraction*m) * win[i]
		sum += out[i]
	}

	for i := range out {
		out[i] /= sum
	}

	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// kaiser returns a symmetric Kaiser window of n points.
func kaiser(n int, beta float64) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = 1
		return out
	}

	denom := besselI0(beta)
	for i := range out {
		r := 2*float64(i)/float64(n-1) - 1
		out[i] = besselI0(beta*math.Sqrt(1-r*r)) / denom
	}

	return out
}

// besselI0 is the zeroth order modified Bessel function of the first kind,
// summed from its power series until terms stop contributing.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	halfX := 0.5 * x
	for k := 1; k < 500; k++ {
		term *= (halfX / float64(k)) * (halfX / float64(k))
		sum += term
		if term < sum*1e-17 {
			break
		}
	}
	return sum
}
