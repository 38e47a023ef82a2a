// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// PlaceholderPrefix marks an ImageResult whose generation failed.
const PlaceholderPrefix = "placeholder:"

// Richness controls how many images a document may carry and its byte budget.
type Richness string

const (
	RichnessMinimal  Richness = "minimal"
	RichnessStandard Richness = "standard"
	RichnessRich     Richness = "rich"
)

// ParseRichness maps free-form input to a Richness, defaulting to standard.
func ParseRichness(s string) Richness {
	switch normalizeEnum(s) {
	case "minimal", "low", "none", "sparse":
		return RichnessMinimal
	case "rich", "high", "full":
		return RichnessRich
	default:
		return RichnessStandard
	}
}

// Level orders richness values: minimal < standard < rich.
func (r Richness) Level() int {
	switch r {
	case RichnessMinimal:
		return 0
	case RichnessRich:
		return 2
	default:
		return 1
	}
}

// SizeClass is the printed footprint of an image.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeWide   SizeClass = "wide"
	// SizeLarge is accepted from older plans and treated as its own row of the
	// size table.
	SizeLarge SizeClass = "large"
)

// ParseSizeClass maps free-form input to a SizeClass. Unknown values produce
// medium.
func ParseSizeClass(s string) SizeClass {
	switch normalizeEnum(s) {
	case "small", "sm", "icon":
		return SizeSmall
	case "wide", "banner", "landscape":
		return SizeWide
	case "large", "lg", "big":
		return SizeLarge
	default:
		return SizeMedium
	}
}

// Dimensions is the pixel box an image of this class is fitted into.
func (s SizeClass) Dimensions() (width, height int) {
	switch s {
	case SizeSmall:
		return 256, 256
	case SizeWide:
		return 600, 400
	case SizeLarge:
		return 512, 512
	default:
		return 400, 400
	}
}

// VisualStyle is the artistic style requested from the image provider.
type VisualStyle string

const (
	StyleSimpleIcons VisualStyle = "simple_icons"
	StyleCartoon     VisualStyle = "cartoon"
	StyleWatercolor  VisualStyle = "watercolor"
	StyleLineArt     VisualStyle = "line_art"
	StyleRealistic   VisualStyle = "realistic"
)

// FallbackStyle is the plainest style; it is retried when an ornate style
// keeps failing.
const FallbackStyle = StyleSimpleIcons

// ParseVisualStyle maps free-form input to a VisualStyle, defaulting to
// cartoon.
func ParseVisualStyle(s string) VisualStyle {
	switch normalizeEnum(s) {
	case "simple_icons", "simple", "icons", "icon", "minimal", "flat":
		return StyleSimpleIcons
	case "watercolor", "watercolour", "painted":
		return StyleWatercolor
	case "line_art", "lineart", "coloring", "colouring", "outline":
		return StyleLineArt
	case "realistic", "photo", "photographic":
		return StyleRealistic
	default:
		return StyleCartoon
	}
}

// PromptPhrase is the style instruction sent to the image provider.
func (s VisualStyle) PromptPhrase() string {
	switch s {
	case StyleSimpleIcons:
		return "simple flat icon style, thick outlines, plain white background"
	case StyleWatercolor:
		return "soft watercolor illustration, gentle colors, white background"
	case StyleLineArt:
		return "black and white line art suitable for coloring, no shading"
	case StyleRealistic:
		return "clear realistic illustration, neutral background"
	default:
		return "friendly cartoon illustration, bright colors, white background"
	}
}

// InstructionalPurpose classifies why an image exists on the page.
type InstructionalPurpose string

const (
	PurposeCountingSupport InstructionalPurpose = "counting_support"
	PurposePhonicsCue      InstructionalPurpose = "phonics_cue"
	PurposeVocabulary      InstructionalPurpose = "vocabulary_support"
	PurposeDiagram         InstructionalPurpose = "diagram"
	PurposeSceneContext    InstructionalPurpose = "scene_context"
	PurposeIllustration    InstructionalPurpose = "illustration"
	PurposeDecoration      InstructionalPurpose = "decoration"
)

// ParsePurpose maps a declared purpose to a known value. The boolean is false
// when the input is empty or unknown.
func ParsePurpose(s string) (InstructionalPurpose, bool) {
	switch normalizeEnum(s) {
	case "counting_support", "counting", "count":
		return PurposeCountingSupport, true
	case "phonics_cue", "phonics":
		return PurposePhonicsCue, true
	case "vocabulary_support", "vocabulary":
		return PurposeVocabulary, true
	case "diagram", "diagram_label":
		return PurposeDiagram, true
	case "scene_context", "scene", "context":
		return PurposeSceneContext, true
	case "illustration":
		return PurposeIllustration, true
	case "decoration", "decorative":
		return PurposeDecoration, true
	default:
		return PurposeIllustration, false
	}
}

// Priority is the fixed admission score of a purpose. Higher is kept first.
func (p InstructionalPurpose) Priority() int {
	switch p {
	case PurposeCountingSupport:
		return 100
	case PurposePhonicsCue:
		return 95
	case PurposeVocabulary:
		return 85
	case PurposeDiagram:
		return 80
	case PurposeSceneContext:
		return 60
	case PurposeDecoration:
		return 0
	default:
		return 40
	}
}

// ImagePlacement proposes an image anchored to a plan item.
type ImagePlacement struct {
	ID          string    `json:"id,omitempty" yaml:"id,omitempty"`
	AnchorID    string    `json:"anchorId" yaml:"anchor_id"`
	Description string    `json:"description" yaml:"description"`
	Purpose     string    `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Size        SizeClass `json:"size" yaml:"size"`
}

// ImageRequest is one call worth of image generation.
type ImageRequest struct {
	Prompt      string      `json:"prompt"`
	Description string      `json:"description"`
	Style       VisualStyle `json:"style"`
	Size        SizeClass   `json:"size"`
	PlacementID string      `json:"placementId,omitempty"`
	Grade       string      `json:"grade,omitempty"`
	Subject     string      `json:"subject,omitempty"`
	Theme       string      `json:"theme,omitempty"`
}

// ImageResult holds a generated image or a placeholder sentinel.
type ImageResult struct {
	Data            string  `json:"data" yaml:"data"`
	MediaType       string  `json:"mediaType" yaml:"media_type"`
	Width           int     `json:"width" yaml:"width"`
	Height          int     `json:"height" yaml:"height"`
	OriginalBytes   int     `json:"originalBytes,omitempty" yaml:"original_bytes,omitempty"`
	CompressedBytes int     `json:"compressedBytes,omitempty" yaml:"compressed_bytes,omitempty"`
	Ratio           float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	PlacementID     string  `json:"placementId,omitempty" yaml:"placement_id,omitempty"`
}

// IsPlaceholder reports whether the result stands in for a failed generation.
func (r ImageResult) IsPlaceholder() bool {
	return IsPlaceholderData(r.Data)
}

// IsPlaceholderData reports whether data carries the placeholder prefix.
func IsPlaceholderData(data string) bool {
	return strings.HasPrefix(data, PlaceholderPrefix)
}

// PayloadBytes is the number of bytes the image contributes to the output.
// Placeholders contribute nothing. Uncompressed images are measured by their
// decoded base64 length.
func (r ImageResult) PayloadBytes() int {
	if r.IsPlaceholder() {
		return 0
	}
	if r.CompressedBytes > 0 {
		return r.CompressedBytes
	}
	n := len(r.Data) * 3 / 4
	n -= strings.Count(r.Data[max(0, len(r.Data)-2):], "=")
	return n
}

// ImageStats aggregates a batch of image generations.
type ImageStats struct {
	Total     int               `json:"total" yaml:"total"`
	Generated int               `json:"generated" yaml:"generated"`
	Cached    int               `json:"cached" yaml:"cached"`
	Failed    int               `json:"failed" yaml:"failed"`
	Relevance *RelevanceSummary `json:"relevance,omitempty" yaml:"relevance,omitempty"`
}

// RelevanceSummary reports what the relevance gate admitted.
type RelevanceSummary struct {
	Total     int            `json:"total" yaml:"total"`
	Accepted  int            `json:"accepted" yaml:"accepted"`
	Rejected  int            `json:"rejected" yaml:"rejected"`
	Cap       int            `json:"cap" yaml:"cap"`
	ByPurpose map[string]int `json:"byPurpose" yaml:"by_purpose"`
}
