package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/inamate/panels/backend-go/internal/engine"
)

// CompileSVG writes a frame as a standalone SVG document. Save/clip/restore
// runs become clip-path groups; other commands map one to one onto SVG
// elements.
func CompileSVG(f engine.Frame) []byte {
	c := &svgCompiler{}
	c.printf(`<g transform="matrix(%s)">`, joinFloats(f.Transform))
	c.printf(`<rect x="0" y="0" width="%d" height="%d" fill="#ffffff"/>`, f.Width, f.Height)
	for _, l := range f.Layers {
		c.printf(`<g id=%s>`, quote(l.ID))
		c.commands(l.Commands)
		c.body.WriteString("</g>\n")
	}
	c.commands(f.Overlay)
	c.body.WriteString("</g>\n")

	var out bytes.Buffer
	out.WriteString(xml.Header)
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		f.Width, f.Height, f.Width, f.Height)
	if c.defs.Len() > 0 {
		out.WriteString("<defs>\n")
		out.Write(c.defs.Bytes())
		out.WriteString("</defs>\n")
	}
	out.WriteString(c.body.String())
	out.WriteString("</svg>\n")
	return out.Bytes()
}

type svgCompiler struct {
	body  strings.Builder
	defs  bytes.Buffer
	clips int
	// open counts groups opened since each unmatched save.
	open []int
}

func (c *svgCompiler) printf(format string, args ...any) {
	fmt.Fprintf(&c.body, format, args...)
}

func (c *svgCompiler) commands(cmds []engine.DrawCommand) {
	for _, cmd := range cmds {
		c.command(cmd)
	}
	for len(c.open) > 0 {
		c.restore()
	}
}

func (c *svgCompiler) command(cmd engine.DrawCommand) {
	switch cmd.Op {
	case engine.OpSave:
		c.open = append(c.open, 0)

	case engine.OpRestore:
		c.restore()

	case engine.OpClip:
		c.clips++
		id := fmt.Sprintf("clip%d", c.clips)
		fmt.Fprintf(&c.defs, `<clipPath id="%s"><path d=%s/></clipPath>`+"\n", id, quote(pathData(cmd.Path)))
		c.printf(`<g clip-path="url(#%s)">`, id)
		if n := len(c.open); n > 0 {
			c.open[n-1]++
		}

	case engine.OpImage:
		c.printf(`<image href=%s xlink:href=%s x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="xMidYMid slice"%s/>`,
			quote(cmd.ImageURL), quote(cmd.ImageURL), num(cmd.X), num(cmd.Y), num(cmd.Width), num(cmd.Height), transformAttr(cmd.Transform))

	case engine.OpPlaceholder:
		x2, y2 := cmd.X+cmd.Width, cmd.Y+cmd.Height
		c.printf(`<g class="missing-image"><rect x="%s" y="%s" width="%s" height="%s" fill="#eeeeee" stroke="#cc3333" stroke-dasharray="6 4"/>`,
			num(cmd.X), num(cmd.Y), num(cmd.Width), num(cmd.Height))
		c.printf(`<path d="M %s %s L %s %s M %s %s L %s %s" stroke="#cc3333"/></g>`,
			num(cmd.X), num(cmd.Y), num(x2), num(y2), num(x2), num(cmd.Y), num(cmd.X), num(y2))

	case engine.OpPath:
		c.printf(`<path d=%s fill=%s stroke=%s stroke-width="%s" stroke-linejoin="round" stroke-linecap="round"/>`,
			quote(pathData(cmd.Path)), quote(orNone(cmd.Fill)), quote(orNone(cmd.Stroke)), num(cmd.StrokeWidth))

	case engine.OpText:
		x, anchor := cmd.X, "start"
		switch cmd.TextAlign {
		case "center":
			x, anchor = cmd.X+cmd.Width/2, "middle"
		case "right":
			x, anchor = cmd.X+cmd.Width, "end"
		}
		c.printf(`<text x="%s" y="%s" font-size="%s" font-family=%s text-anchor="%s" fill=%s>`,
			num(x), num(cmd.Y+cmd.FontSize), num(cmd.FontSize), quote(cmd.FontFamily), anchor, quote(orNone(cmd.Fill)))
		xml.EscapeText(&c.body, []byte(cmd.Text))
		c.body.WriteString("</text>")

	case engine.OpOutline:
		c.printf(`<rect x="%s" y="%s" width="%s" height="%s" fill="none" stroke=%s stroke-width="%s"/>`,
			num(cmd.X), num(cmd.Y), num(cmd.Width), num(cmd.Height), quote(cmd.Stroke), num(cmd.StrokeWidth))

	case engine.OpHandle:
		c.printf(`<rect x="%s" y="%s" width="%s" height="%s" fill=%s/>`,
			num(cmd.X-cmd.Width/2), num(cmd.Y-cmd.Height/2), num(cmd.Width), num(cmd.Height), quote(cmd.Fill))
	}
}

func (c *svgCompiler) restore() {
	n := len(c.open)
	if n == 0 {
		return
	}
	for range c.open[n-1] {
		c.body.WriteString("</g>")
	}
	c.open = c.open[:n-1]
}

func pathData(path []engine.PathCommand) string {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 {
			b.WriteByte(' ')
		}
		for j, v := range seg {
			if j > 0 {
				b.WriteByte(' ')
			}
			switch t := v.(type) {
			case string:
				b.WriteString(t)
			case float64:
				b.WriteString(num(t))
			case int:
				b.WriteString(strconv.Itoa(t))
			}
		}
	}
	return b.String()
}

func transformAttr(m []float64) string {
	if len(m) != 6 {
		return ""
	}
	return fmt.Sprintf(` transform="matrix(%s)"`, joinFloats(m))
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = num(v)
	}
	return strings.Join(parts, " ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNone(color string) string {
	if color == "" {
		return "none"
	}
	return color
}

// quote returns s as an escaped, double-quoted attribute value.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	xml.EscapeText(&b, []byte(s))
	b.WriteByte('"')
	return b.String()
}
