// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compress

import (
	"fmt"
	"sort"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// MiB is 2^20 bytes.
const MiB = 1 << 20

// Threshold returns the image payload budget for richness.
func Threshold(r types.Richness) int {
	if r == types.RichnessRich {
		return 12 * MiB
	}
	return 5 * MiB
}

// SizeReport is the result of ValidateOutputSize.
type SizeReport struct {
	Valid          bool    `json:"valid" yaml:"valid"`
	TotalBytes     int     `json:"totalBytes" yaml:"total_bytes"`
	ThresholdBytes int     `json:"thresholdBytes" yaml:"threshold_bytes"`
	PercentUsed    float64 `json:"percentUsed" yaml:"percent_used"`
	Suggestion     string  `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// TotalBytes sums the payload of every non-placeholder image.
func TotalBytes(images []types.ImageResult) int {
	total := 0
	for _, img := range images {
		total += img.PayloadBytes()
	}
	return total
}

// ValidateOutputSize checks the image payload against the budget for
// richness.
func ValidateOutputSize(images []types.ImageResult, richness types.Richness) SizeReport {
	r := SizeReport{
		TotalBytes:     TotalBytes(images),
		ThresholdBytes: Threshold(richness),
	}
	r.PercentUsed = float64(r.TotalBytes) / float64(r.ThresholdBytes) * 100
	r.Valid = r.TotalBytes <= r.ThresholdBytes

	switch {
	case !r.Valid:
		r.Suggestion = fmt.Sprintf("images total %s, over the %s budget; drop low-priority images or use a lower richness",
			formatBytes(r.TotalBytes), formatBytes(r.ThresholdBytes))
	case r.PercentUsed >= 80:
		r.Suggestion = "close to the size budget; prefer small or medium images"
	}
	return r
}

// Reduction is the result of ReduceToFitThreshold.
type Reduction struct {
	Images  []types.ImageResult
	Removed []types.ImageResult
	Report  SizeReport
}

// ReduceToFitThreshold removes images until the payload fits the budget for
// richness. Images go in ascending purpose priority, the largest first among
// equals. At least minKeep real images are always kept, so the result may
// still be over budget. Purposes are looked up by placement id; unknown ids
// count as illustrations.
func ReduceToFitThreshold(images []types.ImageResult, purposes map[string]types.InstructionalPurpose, richness types.Richness, minKeep int) Reduction {
	threshold := Threshold(richness)
	total := TotalBytes(images)

	type candidate struct {
		index    int
		priority int
		bytes    int
	}
	var cands []candidate
	for i, img := range images {
		if img.IsPlaceholder() {
			continue
		}
		p, ok := purposes[img.PlacementID]
		if !ok {
			p = types.PurposeIllustration
		}
		cands = append(cands, candidate{index: i, priority: p.Priority(), bytes: img.PayloadBytes()})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].priority != cands[j].priority {
			return cands[i].priority < cands[j].priority
		}
		return cands[i].bytes > cands[j].bytes
	})

	kept := len(cands)
	drop := make(map[int]bool)
	for _, c := range cands {
		if total <= threshold || kept <= minKeep {
			break
		}
		drop[c.index] = true
		total -= c.bytes
		kept--
	}

	var red Reduction
	for i, img := range images {
		if drop[i] {
			red.Removed = append(red.Removed, img)
			continue
		}
		red.Images = append(red.Images, img)
	}
	red.Report = ValidateOutputSize(red.Images, richness)
	return red
}
