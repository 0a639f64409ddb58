package view

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/habitlog/internal/stats"
)

const (
	badgeCell   = 10
	badgeGap    = 2
	badgeMargin = 4
	badgeHeader = 16
	badgeFooter = 16
)

var (
	badgeBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	badgeInk        = color.RGBA{R: 0x57, G: 0x60, B: 0x6a, A: 0xff}
)

// RenderHeatmapBadge 把年度热力图绘制为 PNG：每列一周，每行一个工作日（周一在上）
// 顶部标注月份缩写，底部标注年份与全年平均完成度
func RenderHeatmapBadge(heatmap stats.Heatmap) ([]byte, error) {
	jan1 := stats.NewDate(heatmap.Year, time.January, 1)
	offset := jan1.MondayIndex()

	daysInYear := 365
	if heatmap.IsLeapYear {
		daysInYear = 366
	}
	weeks := (offset + daysInYear + 6) / 7

	step := badgeCell + badgeGap
	width := badgeMargin*2 + weeks*step
	height := badgeHeader + 7*step + badgeFooter
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(badgeBackground), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(badgeInk),
		Face: basicfont.Face7x13,
	}

	index := offset
	for _, month := range heatmap.Months {
		labelX := badgeMargin + (index/7)*step
		drawer.Dot = fixed.P(labelX, badgeHeader-4)
		drawer.DrawString(time.Month(month.Month).String()[:3])

		for _, day := range month.Days {
			col, row := index/7, index%7
			x := badgeMargin + col*step
			y := badgeHeader + row*step
			cell := image.Rect(x, y, x+badgeCell, y+badgeCell)
			draw.Draw(img, cell, image.NewUniform(BandColor(Band(day.CompletionPercentage))), image.Point{}, draw.Src)
			index++
		}
	}

	summary := strconv.Itoa(heatmap.Year) + "  avg " + strconv.FormatFloat(heatmap.OverallStats.AverageCompletion, 'f', 1, 64) + "%"
	drawer.Dot = fixed.P(badgeMargin, height-4)
	drawer.DrawString(summary)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
