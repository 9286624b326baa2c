package chess

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceAssets embed.FS

type glyphKey struct {
	piece nchess.Piece
	size  int
}

// glyphCache rasterizes piece vectors once per (piece, size) pair. Rendering
// a board touches up to 32 squares, so the cache pays off on the first frame.
type glyphCache struct {
	mu     sync.RWMutex
	raster map[glyphKey]image.Image
}

func newGlyphCache() *glyphCache {
	return &glyphCache{raster: map[glyphKey]image.Image{}}
}

func (c *glyphCache) image(piece nchess.Piece, size int) (image.Image, error) {
	key := glyphKey{piece: piece, size: size}

	c.mu.RLock()
	img, ok := c.raster[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := rasterizePiece(piece, size)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.raster[key] = img
	c.mu.Unlock()
	return img, nil
}

func rasterizePiece(piece nchess.Piece, size int) (image.Image, error) {
	data, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}

	w := int(icon.ViewBox.W)
	h := int(icon.ViewBox.H)
	if w <= 0 {
		w = size
		icon.ViewBox.W = float64(w)
	}
	if h <= 0 {
		h = size
		icon.ViewBox.H = float64(h)
	}

	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	return img, nil
}

func pieceSVG(piece nchess.Piece) ([]byte, error) {
	name := pieceAssetName(piece)
	data, err := pieceAssets.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	return data, nil
}

// pieceGlyphID names a piece's <defs> entry in generated SVG documents.
func pieceGlyphID(piece nchess.Piece) string {
	var prefix string
	if piece.Color() == nchess.White {
		prefix = "w"
	} else {
		prefix = "b"
	}
	return prefix + pieceTypeLetter(piece.Type())
}

func pieceAssetName(piece nchess.Piece) string {
	return fmt.Sprintf("assets/pieces/%s.svg", pieceGlyphID(piece))
}

func pieceTypeLetter(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "K"
	case nchess.Queen:
		return "Q"
	case nchess.Rook:
		return "R"
	case nchess.Bishop:
		return "B"
	case nchess.Knight:
		return "N"
	default:
		return "P"
	}
}
