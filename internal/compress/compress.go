// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compress normalizes generated images for print and keeps the
// document under its byte budget. Images are fitted into the target box of
// their size class, flattened onto white and re-encoded as JPEG.
package compress

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/fogleman/gg"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/worksheet-engine/internal/logger"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 80

// decodable lists the formats Compress accepts.
var decodable = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// Compressor re-encodes images.
type Compressor struct {
	Quality int
	Log     *logger.Logger
}

// New returns a Compressor for cfg.
func New(cfg types.CompressionConfig, log *logger.Logger) *Compressor {
	if log == nil {
		log = logger.Nop()
	}
	q := cfg.Quality
	if q <= 0 || q > 100 {
		q = DefaultQuality
	}
	return &Compressor{Quality: q, Log: log}
}

// Compress fits res into the target box for size and re-encodes it as JPEG.
// Placeholders pass through with a ratio of 1. Images that cannot be decoded
// become placeholders.
func (c *Compressor) Compress(res types.ImageResult, size types.SizeClass) types.ImageResult {
	if res.IsPlaceholder() {
		res.Ratio = 1
		return res
	}

	out, err := c.compress(res, size)
	if err != nil {
		if c.Log != nil {
			c.Log.Warn("image not compressible, using placeholder", "placement", res.PlacementID, "error", err)
		}
		w, h := size.Dimensions()
		id := res.PlacementID
		if id == "" {
			id = "undecodable"
		}
		return types.ImageResult{
			Data:        types.PlaceholderPrefix + id,
			MediaType:   "image/placeholder",
			Width:       w,
			Height:      h,
			Ratio:       1,
			PlacementID: res.PlacementID,
		}
	}
	return out
}

func (c *Compressor) compress(res types.ImageResult, size types.SizeClass) (types.ImageResult, error) {
	raw, err := base64.StdEncoding.DecodeString(res.Data)
	if err != nil {
		return res, fmt.Errorf("decoding base64: %w", err)
	}
	if mt := mimetype.Detect(raw); !supported(mt) {
		return res, fmt.Errorf("unsupported media type %s", mt.String())
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return res, fmt.Errorf("decoding image: %w", err)
	}

	tw, th := size.Dimensions()
	w, h := fit(src.Bounds().Dx(), src.Bounds().Dy(), tw, th)

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)

	// Flatten onto white; JPEG has no alpha.
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(scaled, 0, 0)

	quality := c.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return res, fmt.Errorf("encoding jpeg: %w", err)
	}

	out := types.ImageResult{
		Data:            base64.StdEncoding.EncodeToString(buf.Bytes()),
		MediaType:       "image/jpeg",
		Width:           w,
		Height:          h,
		OriginalBytes:   len(raw),
		CompressedBytes: buf.Len(),
		PlacementID:     res.PlacementID,
	}
	out.Ratio = float64(out.OriginalBytes) / float64(out.CompressedBytes)
	return out, nil
}

func supported(mt *mimetype.MIME) bool {
	for _, m := range decodable {
		if mt.Is(m) {
			return true
		}
	}
	return false
}

// fit scales (w, h) down to fit inside (tw, th) keeping the aspect ratio.
// Images already inside the box keep their size.
func fit(w, h, tw, th int) (int, int) {
	if w <= 0 || h <= 0 {
		return tw, th
	}
	if w <= tw && h <= th {
		return w, h
	}
	scale := min(float64(tw)/float64(w), float64(th)/float64(h))
	nw := max(int(float64(w)*scale+0.5), 1)
	nh := max(int(float64(h)*scale+0.5), 1)
	return nw, nh
}

// Totals sums compression metrics over a batch.
type Totals struct {
	OriginalBytes   int     `json:"originalBytes" yaml:"original_bytes"`
	CompressedBytes int     `json:"compressedBytes" yaml:"compressed_bytes"`
	Ratio           float64 `json:"ratio" yaml:"ratio"`
}

// CompressAll compresses each image with the size of its placement.
// Missing sizes use medium.
func (c *Compressor) CompressAll(images []types.ImageResult, sizes map[string]types.SizeClass) ([]types.ImageResult, Totals) {
	out := make([]types.ImageResult, len(images))
	var t Totals
	for i, img := range images {
		size, ok := sizes[img.PlacementID]
		if !ok {
			size = types.SizeMedium
		}
		out[i] = c.Compress(img, size)
		t.OriginalBytes += out[i].OriginalBytes
		t.CompressedBytes += out[i].CompressedBytes
	}
	if t.CompressedBytes > 0 {
		t.Ratio = float64(t.OriginalBytes) / float64(t.CompressedBytes)
	}
	return out, t
}

// formatBytes renders n as MiB with one decimal.
func formatBytes(n int) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/MiB), ".0") + " MiB"
}
