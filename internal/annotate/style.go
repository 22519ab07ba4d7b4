package annotate

import "image/color"

// Style fixes how committed marks look.
type Style struct {
	ArrowColor      color.RGBA
	ArrowWidth      float64
	LabelBackground color.RGBA
	LabelText       color.RGBA
	LabelPadding    int
}

func DefaultStyle() Style {
	return Style{
		ArrowColor:      color.RGBA{R: 255, A: 255},
		ArrowWidth:      3,
		LabelBackground: color.RGBA{R: 255, A: 255},
		LabelText:       color.RGBA{R: 255, G: 255, B: 255, A: 255},
		LabelPadding:    10,
	}
}
