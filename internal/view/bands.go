package view

import "image/color"

// 完成度色阶，0 表示当天没有可统计的习惯
const (
	BandEmpty = iota
	BandNone
	BandLow
	BandMedium
	BandHigh
	BandFull
)

var bandColors = [...]color.RGBA{
	BandEmpty:  {R: 0xf6, G: 0xf8, B: 0xfa, A: 0xff},
	BandNone:   {R: 0xeb, G: 0xed, B: 0xf0, A: 0xff},
	BandLow:    {R: 0xc6, G: 0xe4, B: 0x8b, A: 0xff},
	BandMedium: {R: 0x7b, G: 0xc9, B: 0x6f, A: 0xff},
	BandHigh:   {R: 0x23, G: 0x9a, B: 0x3b, A: 0xff},
	BandFull:   {R: 0x19, G: 0x61, B: 0x27, A: 0xff},
}

// Band 把完成百分比映射到色阶：0 / ≤25 / ≤50 / ≤75 / >75
func Band(percentage *int) int {
	switch {
	case percentage == nil:
		return BandEmpty
	case *percentage <= 0:
		return BandNone
	case *percentage <= 25:
		return BandLow
	case *percentage <= 50:
		return BandMedium
	case *percentage <= 75:
		return BandHigh
	default:
		return BandFull
	}
}

// BandColor 返回色阶对应的颜色
func BandColor(band int) color.RGBA {
	if band < 0 || band >= len(bandColors) {
		return bandColors[BandEmpty]
	}
	return bandColors[band]
}

