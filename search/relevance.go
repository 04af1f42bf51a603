// Package search ranks catalog titles against a free-text keyword.
package search

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

// Titles scoring at or below Threshold are dropped from keyword results.
const Threshold = 30

const (
	scoreExactTitle    = 100
	scoreTitlePrefix   = 90
	scoreTitleContains = 80
	scoreAuthor        = 70
	scorePublisher     = 50

	// scoreFuzzyMax is the ceiling for a fuzzy-only match, below every
	// direct substring hit.
	scoreFuzzyMax = scorePublisher - 1
)

// Score returns 0..100 for how well title matches keyword. Direct substring
// hits on the title, author and publisher win; otherwise the best fuzzy
// partial ratio of the three fields is mapped into (Threshold, scoreFuzzyMax].
func Score(keyword string, b models.BookTitle) int {
	kw := normalize(keyword)
	if kw == "" {
		return 0
	}
	name := normalize(b.Name)
	author := normalize(b.Author)
	publisher := normalize(b.Publisher)

	switch {
	case name == kw:
		return scoreExactTitle
	case strings.HasPrefix(name, kw):
		return scoreTitlePrefix
	case strings.Contains(name, kw):
		return scoreTitleContains
	case author != "" && strings.Contains(author, kw):
		return scoreAuthor
	case publisher != "" && strings.Contains(publisher, kw):
		return scorePublisher
	}

	best := 0
	for _, field := range []string{name, author, publisher} {
		if s := PartialRatio(kw, field); s > best {
			best = s
		}
	}
	return fuzzyScore(best)
}

// fuzzyScore rescales a partial ratio so that ratios above Threshold stay
// above it and a perfect ratio lands on scoreFuzzyMax.
func fuzzyScore(ratio int) int {
	if ratio <= Threshold {
		return ratio
	}
	span := scoreFuzzyMax - Threshold
	return Threshold + ((ratio-Threshold)*span+(100-Threshold)-1)/(100-Threshold)
}

// PartialRatio compares the shorter string against every window of the
// longer one of the same length and returns the best similarity in 0..100.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		if r := ratio(s, string(long[i:i+len(short)]), len(short)); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func ratio(a, b string, n int) int {
	d := levenshtein.ComputeDistance(a, b)
	if d >= n {
		return 0
	}
	return (n - d) * 100 / n
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Ranked is a title with its relevance score.
type Ranked struct {
	Title models.BookTitle
	Score int
}

// Rank scores titles against keyword, drops those at or below Threshold and
// orders the rest by score, then name, then id. The order is deterministic
// for a given keyword and input set regardless of input order.
func Rank(keyword string, titles []models.BookTitle) []Ranked {
	out := make([]Ranked, 0, len(titles))
	for _, t := range titles {
		if s := Score(keyword, t); s > Threshold {
			out = append(out, Ranked{Title: t, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ni, nj := strings.ToLower(out[i].Title.Name), strings.ToLower(out[j].Title.Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].Title.ID < out[j].Title.ID
	})
	return out
}

// Page slices a result set; page is 1-based.
func Page[T any](items []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
