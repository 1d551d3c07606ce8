package scorer

import (
	"strings"

	"github.com/samber/lo"
)

// MaxScore is the hard ceiling for an importance score.
const MaxScore = 15

// category is a fixed keyword set with an integer weight. Every keyword
// match in the combined title+description text contributes weight points.
type category struct {
	name     string
	weight   int
	keywords []string
}

var categories = []category{
	{
		name:   "breaking_urgent",
		weight: 8,
		keywords: []string{
			"breaking", "urgent", "alert", "major announcement", "massive", "historic",
			"unprecedented", "emergency", "just in", "developing",
		},
	},
	{
		name:   "indian_companies",
		weight: 4,
		keywords: []string{
			"paytm", "flipkart", "zomato", "swiggy", "byju", "oyo", "ola", "phonepe", "razorpay",
			"cred", "dream11", "nykaa", "tcs", "infosys", "wipro", "reliance", "jio", "airtel",
		},
	},
	{
		name:   "global_tech_giants",
		weight: 4,
		keywords: []string{
			"apple", "google", "microsoft", "amazon", "meta", "facebook", "tesla",
			"nvidia", "openai", "chatgpt", "netflix", "uber", "airbnb",
		},
	},
	{
		name:   "high_impact_events",
		weight: 6,
		keywords: []string{
			"ipo", "acquisition", "merger", "funding", "bankruptcy", "layoffs", "hiring freeze",
			"data breach", "hack", "cyber attack", "stock crash", "market surge",
		},
	},
	{
		name:   "tech_breakthroughs",
		weight: 5,
		keywords: []string{
			"ai breakthrough", "quantum computing", "autonomous", "electric vehicle",
			"cryptocurrency", "bitcoin", "ethereum", "blockchain", "5g", "metaverse",
		},
	},
}

// Title-only bonus sets, checked independently of the category scan. A
// keyword present in both a category and a bonus set counts twice; the 7+
// delivery threshold is calibrated against that, so it stays.
var (
	urgentTitleWords  = []string{"breaking", "urgent", "major", "massive", "historic", "unprecedented"}
	companyTitleWords = []string{"apple", "google", "microsoft", "amazon", "tesla", "openai", "meta"}
	eventTitleWords   = []string{"ipo", "acquisition", "merger", "funding", "layoffs", "hack", "breach"}
	localeTitleWords  = []string{"india", "indian", "rupee", "mumbai", "delhi"}
)

const (
	urgentTitleBonus  = 8
	companyTitleBonus = 6
	eventTitleBonus   = 7
	localeTitleBonus  = 3
)

// Score rates an article's newsworthiness from its title and description.
// Pure and deterministic; the result is always within [0, MaxScore].
func Score(title, description string) int {
	text := strings.ToLower(title + " " + description)
	titleLower := strings.ToLower(title)

	score := 0

	for _, cat := range categories {
		matches := lo.CountBy(cat.keywords, func(kw string) bool {
			return strings.Contains(text, kw)
		})
		score += matches * cat.weight
	}

	if containsAny(titleLower, urgentTitleWords) {
		score += urgentTitleBonus
	}
	if containsAny(titleLower, companyTitleWords) {
		score += companyTitleBonus
	}
	if containsAny(titleLower, eventTitleWords) {
		score += eventTitleBonus
	}
	if containsAny(titleLower, localeTitleWords) {
		score += localeTitleBonus
	}

	return clamp(score)
}

func containsAny(text string, words []string) bool {
	return lo.SomeBy(words, func(w string) bool {
		return strings.Contains(text, w)
	})
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
