package chess

import "bytes"

// sanitizeSVG patches malformed style values seen in piece sets pulled from
// the wild before oksvg parses them.
func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: 000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: 000000"), []byte("stroke:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stop-color: #"), []byte("stop-color:#"))
	return fixed
}

// svgInner strips the outer <svg> element so the glyph's markup can be
// wrapped into a <g> inside a larger document.
func svgInner(svg []byte) []byte {
	open := bytes.Index(svg, []byte("<svg"))
	if open < 0 {
		return svg
	}
	start := bytes.IndexByte(svg[open:], '>')
	if start < 0 {
		return svg
	}
	start += open + 1
	end := bytes.LastIndex(svg, []byte("</svg>"))
	if end < start {
		return svg
	}
	return bytes.TrimSpace(svg[start:end])
}
