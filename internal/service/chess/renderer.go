package chess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	// Highlight tints the squares of the most recent move.
	Highlight *MoveHighlight
	// Perspective picks the side at the bottom edge. White when unset.
	Perspective nchess.Color
	// SizePx is a canvas-width hint. Zero means the default size.
	SizePx int
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
	RenderSVG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

const (
	boardSquares    = 8
	defaultSquarePx = 64
	minSquarePx     = 32
	maxSquarePx     = 128
	glyphViewBox    = 45.0
)

var (
	lightSquare   = color.RGBA{233, 207, 163, 255}
	darkSquare    = color.RGBA{187, 136, 96, 255}
	canvasFill    = color.RGBA{246, 242, 233, 255}
	highlightFill = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	coordinateInk = color.NRGBA{R: 74, G: 58, B: 42, A: 255}
)

// boardGeometry carries the pixel layout for one render: an 8x8 grid with a
// half-square margin on every side.
type boardGeometry struct {
	square int
	margin int
	span   int
	canvas int
}

func geometryFor(sizePx int) boardGeometry {
	square := defaultSquarePx
	if sizePx > 0 {
		square = sizePx / (boardSquares + 1)
	}
	if square < minSquarePx {
		square = minSquarePx
	}
	if square > maxSquarePx {
		square = maxSquarePx
	}
	margin := square / 2
	span := square * boardSquares
	return boardGeometry{
		square: square,
		margin: margin,
		span:   span,
		canvas: span + margin*2,
	}
}

func (g boardGeometry) origin() image.Point {
	return image.Point{X: g.margin, Y: g.margin}
}

type imageBoardRenderer struct {
	glyphs *glyphCache
}

func NewBoardRenderer() BoardRenderer {
	return &imageBoardRenderer{glyphs: newGlyphCache()}
}

func (r *imageBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	geom := geometryFor(opts.SizePx)
	flipped := opts.Perspective == nchess.Black

	img := image.NewRGBA(image.Rect(0, 0, geom.canvas, geom.canvas))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(canvasFill), image.Point{}, imagedraw.Src)

	drawSquares(img, geom, flipped)
	drawHighlight(img, opts.Highlight, geom, flipped)
	if err := r.drawPieces(img, board, geom, flipped); err != nil {
		return nil, err
	}
	drawCoordinates(img, geom, flipped)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *imageBoardRenderer) RenderSVG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	geom := geometryFor(opts.SizePx)
	flipped := opts.Perspective == nchess.Black

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		geom.canvas, geom.canvas, geom.canvas, geom.canvas)
	fmt.Fprintf(&buf, `<rect width="%d" height="%d" fill="%s"/>`+"\n", geom.canvas, geom.canvas, hexColor(canvasFill))

	if err := writeGlyphDefs(&buf, board); err != nil {
		return nil, err
	}

	for _, sq := range boardSquareOrder() {
		row, col := squareRowCol(sq, flipped)
		fill := lightSquare
		if isDarkSquare(sq) {
			fill = darkSquare
		}
		fmt.Fprintf(&buf, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`+"\n",
			geom.margin+col*geom.square, geom.margin+row*geom.square, geom.square, geom.square, hexColor(fill))
	}

	if hl := opts.Highlight; hl != nil {
		for _, sq := range []nchess.Square{hl.From, hl.To} {
			row, col := squareRowCol(sq, flipped)
			fmt.Fprintf(&buf, `<rect x="%d" y="%d" width="%d" height="%d" fill="#ffe478" fill-opacity="0.55"/>`+"\n",
				geom.margin+col*geom.square, geom.margin+row*geom.square, geom.square, geom.square)
		}
	}

	scale := float64(geom.square) / glyphViewBox
	for _, sq := range boardSquareOrder() {
		piece := board.Piece(sq)
		if piece == nchess.NoPiece {
			continue
		}
		row, col := squareRowCol(sq, flipped)
		fmt.Fprintf(&buf, `<use href="#%s" transform="translate(%d,%d) scale(%.4f)"/>`+"\n",
			pieceGlyphID(piece), geom.margin+col*geom.square, geom.margin+row*geom.square, scale)
	}

	writeSVGCoordinates(&buf, geom, flipped)
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

// writeGlyphDefs inlines one <g> per distinct piece on the board so <use>
// references stay within the document.
func writeGlyphDefs(buf *bytes.Buffer, board *nchess.Board) error {
	seen := map[string]bool{}
	buf.WriteString("<defs>\n")
	for _, sq := range boardSquareOrder() {
		piece := board.Piece(sq)
		if piece == nchess.NoPiece {
			continue
		}
		id := pieceGlyphID(piece)
		if seen[id] {
			continue
		}
		seen[id] = true

		data, err := pieceSVG(piece)
		if err != nil {
			return err
		}
		fmt.Fprintf(buf, `<g id="%s">`+"\n", id)
		buf.Write(svgInner(sanitizeSVG(data)))
		buf.WriteString("\n</g>\n")
	}
	buf.WriteString("</defs>\n")
	return nil
}

func writeSVGCoordinates(buf *bytes.Buffer, geom boardGeometry, flipped bool) {
	fontPx := geom.square / 5
	for row := 0; row < boardSquares; row++ {
		y := geom.margin + row*geom.square + geom.square/2 + fontPx/2
		fmt.Fprintf(buf, `<text x="%d" y="%d" font-family="monospace" font-size="%d" text-anchor="middle" fill="%s">%s</text>`+"\n",
			geom.margin/2, y, fontPx, hexColor(coordinateInk), rankLabel(row, flipped))
	}
	for col := 0; col < boardSquares; col++ {
		x := geom.margin + col*geom.square + geom.square/2
		fmt.Fprintf(buf, `<text x="%d" y="%d" font-family="monospace" font-size="%d" text-anchor="middle" fill="%s">%s</text>`+"\n",
			x, geom.margin+geom.span+fontPx+4, fontPx, hexColor(coordinateInk), fileLabel(col, flipped))
	}
}

func (r *imageBoardRenderer) drawPieces(img *image.RGBA, board *nchess.Board, geom boardGeometry, flipped bool) error {
	for _, sq := range boardSquareOrder() {
		piece := board.Piece(sq)
		if piece == nchess.NoPiece {
			continue
		}
		glyph, err := r.glyphs.image(piece, geom.square)
		if err != nil {
			return err
		}
		imagedraw.Draw(img, squareRect(sq, geom, flipped), glyph, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquares(img *image.RGBA, geom boardGeometry, flipped bool) {
	for _, sq := range boardSquareOrder() {
		fill := lightSquare
		if isDarkSquare(sq) {
			fill = darkSquare
		}
		imagedraw.Draw(img, squareRect(sq, geom, flipped), image.NewUniform(fill), image.Point{}, imagedraw.Src)
	}
}

func drawHighlight(img *image.RGBA, hl *MoveHighlight, geom boardGeometry, flipped bool) {
	if hl == nil {
		return
	}
	fill := image.NewUniform(highlightFill)
	imagedraw.Draw(img, squareRect(hl.From, geom, flipped), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, squareRect(hl.To, geom, flipped), fill, image.Point{}, imagedraw.Over)
}

func drawCoordinates(img *image.RGBA, geom boardGeometry, flipped bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Face: face,
		Src:  image.NewUniform(coordinateInk),
	}
	ascent := face.Metrics().Ascent.Ceil()

	origin := geom.origin()
	for row := 0; row < boardSquares; row++ {
		baseline := origin.Y + row*geom.square + geom.square/2 + ascent/2
		drawCenteredText(drawer, rankLabel(row, flipped), origin.X-geom.margin/2, baseline)
	}
	for col := 0; col < boardSquares; col++ {
		centerX := origin.X + col*geom.square + geom.square/2
		drawCenteredText(drawer, fileLabel(col, flipped), centerX, origin.Y+geom.span+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

// boardSquareOrder walks a8..h1 the way diagrams read, which also keeps SVG
// output deterministic.
func boardSquareOrder() []nchess.Square {
	squares := make([]nchess.Square, 0, 64)
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < boardSquares; file++ {
			squares = append(squares, nchess.NewSquare(nchess.File(file), nchess.Rank(rank)))
		}
	}
	return squares
}

func squareRowCol(sq nchess.Square, flipped bool) (row, col int) {
	file := int(sq.File())
	rank := int(sq.Rank())
	if flipped {
		return rank, boardSquares - 1 - file
	}
	return boardSquares - 1 - rank, file
}

func squareRect(sq nchess.Square, geom boardGeometry, flipped bool) image.Rectangle {
	row, col := squareRowCol(sq, flipped)
	x := geom.margin + col*geom.square
	y := geom.margin + row*geom.square
	return image.Rect(x, y, x+geom.square, y+geom.square)
}

func isDarkSquare(sq nchess.Square) bool {
	return (int(sq.File())+int(sq.Rank()))%2 == 0
}

func rankLabel(row int, flipped bool) string {
	rank := boardSquares - row
	if flipped {
		rank = row + 1
	}
	return strconv.Itoa(rank)
}

func fileLabel(col int, flipped bool) string {
	file := col
	if flipped {
		file = boardSquares - 1 - col
	}
	return string(rune('a' + file))
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
