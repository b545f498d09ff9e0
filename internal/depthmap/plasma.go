package depthmap

import "image/color"

// Degree-6 polynomial fit of matplotlib's plasma colormap, evaluated per
// channel with Horner's rule. Max fit error is below one 8-bit level.
var plasmaCoeff = [7][3]float64{
	{0.05873234392399702, 0.02333670892565664, 0.5433401826748754},
	{2.176514634195958, 0.2383834171260182, 0.7539604599784036},
	{-2.689460476458034, -7.455851135738909, 3.110799939717086},
	{6.130348345893603, 42.3461881477227, -28.51885465332158},
	{-11.10743619062271, -82.66631109428045, 60.13984767418263},
	{10.02306557647065, 71.41361770095349, -54.07218655560067},
	{-3.658713842777788, -22.93153465461149, 18.19190778539828},
}

var plasmaLUT = buildPlasmaLUT()

func buildPlasmaLUT() [256]color.NRGBA {
	var lut [256]color.NRGBA
	for i := range lut {
		t := float64(i) / 255
		var rgb [3]float64
		for ch := 0; ch < 3; ch++ {
			v := plasmaCoeff[6][ch]
			for d := 5; d >= 0; d-- {
				v = v*t + plasmaCoeff[d][ch]
			}
			rgb[ch] = v
		}
		lut[i] = color.NRGBA{R: clamp8(rgb[0]), G: clamp8(rgb[1]), B: clamp8(rgb[2]), A: 0xff}
	}
	return lut
}

func clamp8(v float64) uint8 {
	v *= 255
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
