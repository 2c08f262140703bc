package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Category is a classified message purpose.
type Category string

const (
	CategoryGreeting      Category = "greeting"
	CategoryNFTInquiry    Category = "nft_inquiry"
	CategoryGalleryAccess Category = "gallery_access"
	CategoryMinting       Category = "minting"
	CategoryCommunity     Category = "community"
	CategoryHelp          Category = "help"
)

// Intent is the classification result for one message.
type Intent struct {
	Type       Category          `json:"type"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities"`
}

// CategoryPatterns couples a category with its textual match patterns. The
// list order is significant: on equal confidence the earlier entry wins.
type CategoryPatterns struct {
	Category Category
	Patterns []string
}

// DefaultPatterns returns the built-in pattern table in evaluation order.
func DefaultPatterns() []CategoryPatterns {
	return []CategoryPatterns{
		{CategoryGreeting, []string{
			`^(hi|hello|hey|sup|what's up|howdy)`,
			`^(good morning|good afternoon|good evening)`,
			`^(yo|greetings|salutations)`,
		}},
		{CategoryNFTInquiry, []string{
			`(nft|token|collection)`,
			`(what do i have|what nfts|show me my)`,
			`(balance|holdings|portfolio)`,
		}},
		{CategoryGalleryAccess, []string{
			`(gallery|view|show|display)`,
			`(browse|explore|look at)`,
			`(car|vehicle|automotive)`,
		}},
		{CategoryMinting, []string{
			`(mint|create|generate)`,
			`(new nft|new token)`,
			`(drop|launch|release)`,
		}},
		{CategoryCommunity, []string{
			`(community|group|discord|telegram)`,
			`(join|connect|network)`,
			`(other holders|members)`,
		}},
		{CategoryHelp, []string{
			`(help|support|assist)`,
			`(what can you do|how does this work)`,
			`(tutorial|guide|instructions)`,
		}},
	}
}

type compiledPattern struct {
	re  *regexp.Regexp
	raw string
}

type categoryEntry struct {
	category Category
	patterns []compiledPattern
}

// Classifier maps free-text message content to an Intent. The pattern table
// is compiled once at construction and immutable afterwards; Classify is
// pure and safe for concurrent use.
type Classifier struct {
	table []categoryEntry
}

// Option configures a Classifier.
type Option func(*[]CategoryPatterns)

// WithPatterns replaces the default pattern table.
func WithPatterns(sets []CategoryPatterns) Option {
	return func(target *[]CategoryPatterns) {
		if len(sets) > 0 {
			*target = sets
		}
	}
}

// NewClassifier compiles the pattern table.
func NewClassifier(opts ...Option) (*Classifier, error) {
	sets := DefaultPatterns()
	for _, opt := range opts {
		if opt != nil {
			opt(&sets)
		}
	}

	table := make([]categoryEntry, 0, len(sets))
	for _, set := range sets {
		entry := categoryEntry{category: set.Category}
		for _, raw := range set.Patterns {
			re, err := regexp.Compile("(?i)" + raw)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q for %s: %w", raw, set.Category, err)
			}
			entry.patterns = append(entry.patterns, compiledPattern{re: re, raw: raw})
		}
		table = append(table, entry)
	}
	return &Classifier{table: table}, nil
}

// specificityThreshold marks a pattern as specific enough for a confidence
// boost, measured on the raw pattern source.
const specificityThreshold = 20

// Classify maps message content to the best matching intent. When nothing
// matches it returns help with confidence zero; that is a normal outcome.
func (c *Classifier) Classify(content string) Intent {
	lowered := strings.ToLower(content)

	best := Intent{Type: CategoryHelp, Confidence: 0, Entities: map[string]string{}}
	for _, entry := range c.table {
		for _, p := range entry.patterns {
			match := p.re.FindString(lowered)
			if match == "" {
				continue
			}
			confidence := 0.5
			if len(match) == len(lowered) {
				confidence += 0.3
			}
			if len(p.raw) > specificityThreshold {
				confidence += 0.2
			}
			if confidence > 1.0 {
				confidence = 1.0
			}
			// Strictly greater keeps first-match-wins on ties.
			if confidence > best.Confidence {
				best = Intent{
					Type:       entry.category,
					Confidence: confidence,
					Entities:   extractEntities(lowered, entry.category),
				}
			}
		}
	}
	return best
}

var (
	collectionRe = regexp.MustCompile(`(?:from|in|of)\s+([a-z0-9 ]+)`)
	tierRe       = regexp.MustCompile(`(premium|vip|basic|standard)`)
	galleryRe    = regexp.MustCompile(`(premium|vip|basic|standard)\s+gallery`)
)

func extractEntities(content string, category Category) map[string]string {
	entities := map[string]string{}
	switch category {
	case CategoryNFTInquiry:
		if m := collectionRe.FindStringSubmatch(content); m != nil {
			entities["collection"] = strings.TrimSpace(m[1])
		}
	case CategoryMinting:
		if m := tierRe.FindStringSubmatch(content); m != nil {
			entities["tier"] = m[1]
		}
	case CategoryGalleryAccess:
		if m := galleryRe.FindStringSubmatch(content); m != nil {
			entities["galleryType"] = m[1]
		}
	}
	return entities
}
