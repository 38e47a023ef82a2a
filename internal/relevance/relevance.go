// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance decides which proposed images are worth generating. Each
// placement is classified by instructional purpose, scored, and admitted in
// score order up to a cap that depends on richness.
package relevance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// Image caps per richness.
const (
	MinimalCap    = 2
	StandardCap   = 5
	MaxRichImages = 10
)

// Cap returns how many images a document may carry. Rich documents get one
// per question, never fewer than the standard cap nor more than
// MaxRichImages, so the cap never decreases as richness increases.
func Cap(richness types.Richness, questionCount int) int {
	switch richness {
	case types.RichnessMinimal:
		return MinimalCap
	case types.RichnessRich:
		return min(max(questionCount, StandardCap), MaxRichImages)
	default:
		return StandardCap
	}
}

// purposeKeywords is scanned in order; the first purpose with a matching
// keyword wins.
var purposeKeywords = []struct {
	purpose  types.InstructionalPurpose
	keywords []string
}{
	{types.PurposeCountingSupport, []string{"count", "number", "how many", "objects", "group", "tally", "ten frame", "dots"}},
	{types.PurposePhonicsCue, []string{"letter", "phonics", "sound", "rhyme", "alphabet", "syllable"}},
	{types.PurposeVocabulary, []string{"vocabulary", "word", "meaning", "definition"}},
	{types.PurposeDiagram, []string{"diagram", "label", "parts of", "cycle", "chart", "graph", "map", "timeline", "cross-section"}},
	{types.PurposeSceneContext, []string{"scene", "setting", "story", "character", "community", "habitat"}},
	{types.PurposeDecoration, []string{"border", "decorative", "decoration", "background", "frame", "ornament", "clipart", "flourish"}},
}

// educationalKeywords admit a plain illustration.
var educationalKeywords = []string{
	"count", "number", "letter", "math", "science", "read", "word", "shape",
	"add", "subtract", "fraction", "measure", "plant", "animal", "weather",
	"time", "clock", "money", "coin", "history", "map", "body", "experiment",
}

// Classify derives a placement's purpose: a known declared purpose wins,
// otherwise the description is matched against the keyword table, otherwise
// illustration.
func Classify(pl types.ImagePlacement) types.InstructionalPurpose {
	if p, ok := types.ParsePurpose(pl.Purpose); ok {
		return p
	}
	desc := strings.ToLower(pl.Description)
	for _, row := range purposeKeywords {
		if containsAny(desc, row.keywords) {
			return row.purpose
		}
	}
	return types.PurposeIllustration
}

// Judge approves or rejects a classified placement.
type Judge interface {
	Approve(purpose types.InstructionalPurpose, description string) (bool, string)
}

// KeywordJudge rejects decoration and admits illustrations only when the
// description names something a student would learn from.
type KeywordJudge struct{}

// Approve implements Judge.
func (KeywordJudge) Approve(purpose types.InstructionalPurpose, description string) (bool, string) {
	switch purpose {
	case types.PurposeDecoration:
		return false, "decorative image"
	case types.PurposeIllustration:
		if !containsAny(strings.ToLower(description), educationalKeywords) {
			return false, "illustration without educational content"
		}
	}
	return true, ""
}

// Decision is the gate's verdict on one placement.
type Decision struct {
	Placement types.ImagePlacement
	Purpose   types.InstructionalPurpose
	Score     int
	Reason    string
}

// Result is the output of Filter.
type Result struct {
	// Accepted is in descending score order.
	Accepted []Decision
	Rejected []Decision
	Summary  types.RelevanceSummary
}

// Purposes maps accepted placement ids to their purposes.
func (r Result) Purposes() map[string]types.InstructionalPurpose {
	m := make(map[string]types.InstructionalPurpose, len(r.Accepted))
	for _, d := range r.Accepted {
		m[d.Placement.ID] = d.Purpose
	}
	return m
}

// Placements returns the accepted placements in admission order.
func (r Result) Placements() []types.ImagePlacement {
	out := make([]types.ImagePlacement, len(r.Accepted))
	for i, d := range r.Accepted {
		out[i] = d.Placement
	}
	return out
}

// Gate filters placements with a Judge.
type Gate struct {
	Judge Judge
}

// Filter classifies, judges, and admits placements. It is pure: the same
// inputs always give the same result.
func (g Gate) Filter(placements []types.ImagePlacement, richness types.Richness, questionCount int) Result {
	judge := g.Judge
	if judge == nil {
		judge = KeywordJudge{}
	}
	limit := Cap(richness, questionCount)

	var res Result
	var approved []Decision
	for _, pl := range placements {
		purpose := Classify(pl)
		d := Decision{Placement: pl, Purpose: purpose, Score: purpose.Priority()}
		if ok, reason := judge.Approve(purpose, pl.Description); !ok {
			d.Reason = reason
			res.Rejected = append(res.Rejected, d)
			continue
		}
		approved = append(approved, d)
	}

	sort.SliceStable(approved, func(i, j int) bool { return approved[i].Score > approved[j].Score })

	byPurpose := make(map[string]int)
	for _, d := range approved {
		if len(res.Accepted) >= limit {
			d.Reason = fmt.Sprintf("over the %s cap of %d", richness, limit)
			res.Rejected = append(res.Rejected, d)
			continue
		}
		res.Accepted = append(res.Accepted, d)
		byPurpose[string(d.Purpose)]++
	}

	res.Summary = types.RelevanceSummary{
		Total:     len(placements),
		Accepted:  len(res.Accepted),
		Rejected:  len(res.Rejected),
		Cap:       limit,
		ByPurpose: byPurpose,
	}
	return res
}

// Filter runs the default keyword gate.
func Filter(placements []types.ImagePlacement, richness types.Richness, questionCount int) Result {
	return Gate{}.Filter(placements, richness, questionCount)
}

// containsAny matches multi-word keywords as substrings and single words as
// word prefixes, so "count" matches "counting" but not "account".
func containsAny(desc string, keywords []string) bool {
	words := strings.FieldsFunc(desc, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-'
	})
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(desc, kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if strings.HasPrefix(w, kw) {
				return true
			}
		}
	}
	return false
}
