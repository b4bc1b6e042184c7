package export

import (
	"bytes"
	"fmt"

	"LocalBoard/internal/render"
	"LocalBoard/internal/state"

	"github.com/gogpu/gg"
	"github.com/jung-kurt/gofpdf"
)

// PDFName is the file name of a PDF print.
const PDFName = "whiteboard.pdf"

// PDF prints strokes as vector paths on a single page sized to the board,
// in points. The board background is painted first so eraser strokes read
// correctly.
func PDF(strokes []state.Stroke, width, height float64, background string) (Artifact, error) {
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()

	r, g, b := hexRGB(background)
	p.SetFillColor(r, g, b)
	p.Rect(0, 0, width, height, "F")

	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")
	for _, st := range strokes {
		segs := render.Smooth(st.Points, width, height)
		if len(segs) == 0 {
			continue
		}
		r, g, b := hexRGB(st.Color)
		p.SetDrawColor(r, g, b)
		p.SetLineWidth(st.Width)
		for _, s := range segs {
			switch s.Kind {
			case render.SegMove:
				p.MoveTo(s.To.X, s.To.Y)
			case render.SegQuad:
				p.CurveTo(s.Ctrl.X, s.Ctrl.Y, s.To.X, s.To.Y)
			case render.SegLine:
				p.LineTo(s.To.X, s.To.Y)
			}
		}
		p.DrawPath("D")
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return Artifact{}, fmt.Errorf("%w: pdf: %v", ErrEncode, err)
	}
	return Artifact{Name: PDFName, ContentType: "application/pdf", Data: buf.Bytes()}, nil
}

func hexRGB(hex string) (int, int, int) {
	c := gg.Hex(hex)
	return int(c.R*255 + 0.5), int(c.G*255 + 0.5), int(c.B*255 + 0.5)
}
