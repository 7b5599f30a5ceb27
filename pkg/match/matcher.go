// Package match binds model predictions to open market instruments by fuzzy
// team-name matching against free-text market titles.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// franchiseSuffixes are mascot/franchise tokens stripped during
// normalization so "Kansas City Chiefs" and "Kansas City" compare equal.
var franchiseSuffixes = map[string]bool{
	"fc": true, "afc": true, "sc": true, "cf": true, "cfc": true,
	"united": true, "hotspur": true, "wanderers": true, "albion": true,
}

// Matcher binds predictions to market quotes.
type Matcher struct {
	minContainLen int
	minCityLen    int
}

// MatcherConfig configures the fuzzy matching thresholds.
type MatcherConfig struct {
	// MinContainLen is the shortest normalized name that may match by
	// substring containment.
	MinContainLen int
	// MinCityLen is the shortest shared leading substring that counts as a
	// city match.
	MinCityLen int
}

// DefaultMatcherConfig returns the default thresholds.
func DefaultMatcherConfig() *MatcherConfig {
	return &MatcherConfig{
		MinContainLen: 4,
		MinCityLen:    5,
	}
}

// NewMatcher creates a matcher.
func NewMatcher(config *MatcherConfig) *Matcher {
	if config == nil {
		config = DefaultMatcherConfig()
	}
	defaults := DefaultMatcherConfig()
	if config.MinContainLen == 0 {
		config.MinContainLen = defaults.MinContainLen
	}
	if config.MinCityLen == 0 {
		config.MinCityLen = defaults.MinCityLen
	}
	return &Matcher{
		minContainLen: config.MinContainLen,
		minCityLen:    config.MinCityLen,
	}
}

// Binding is a successful prediction-to-market bind.
type Binding struct {
	Ticker     string
	Side       core.Side
	PriceCents int64
}

// Match binds a prediction to one of the open quotes. A quote matches when
// its title names the prediction's two teams in either home/away order.
// The bound side is yes when the picked team is the side the market is
// written on, no otherwise. Returns a MatchError when no quote binds;
// unmatched predictions stay visible for manual follow-up.
func (m *Matcher) Match(pred *core.Prediction, quotes []core.MarketQuote) (*Binding, error) {
	home := Normalize(pred.HomeTeam)
	away := Normalize(pred.AwayTeam)
	pick := Normalize(pred.Pick)
	if home == "" || away == "" || pick == "" {
		return nil, &core.MatchError{GameID: pred.GameID, Reason: "prediction is missing team names"}
	}

	for i := range quotes {
		q := &quotes[i]
		first, second, ok := splitTitle(q.Title)
		if !ok {
			// Single-subject title: "Will X win?"
			subject := Normalize(q.Title)
			if subject == "" {
				continue
			}
			if m.namesMatch(subject, home) || m.namesMatch(subject, away) {
				return m.bind(q, m.namesMatch(subject, pick)), nil
			}
			continue
		}

		f := Normalize(first)
		s := Normalize(second)

		// A venue may list the matchup in either order.
		straight := m.namesMatch(f, home) && m.namesMatch(s, away)
		flipped := m.namesMatch(f, away) && m.namesMatch(s, home)
		if !straight && !flipped {
			continue
		}

		return m.bind(q, m.namesMatch(f, pick)), nil
	}

	return nil, &core.MatchError{GameID: pred.GameID, Reason: "no open market names both teams"}
}

// bind resolves the side and price for the picked team. The market is
// written on its first-listed subject; picking the other team buys the no
// side at the complementary price.
func (m *Matcher) bind(q *core.MarketQuote, pickIsSubject bool) *Binding {
	if pickIsSubject {
		return &Binding{Ticker: q.Ticker, Side: core.SideYes, PriceCents: q.PriceCents}
	}
	price := 100 - q.PriceCents
	if q.NoBidCents > 0 {
		price = q.NoBidCents
	}
	return &Binding{Ticker: q.Ticker, Side: core.SideNo, PriceCents: price}
}

// namesMatch reports whether two normalized team names refer to the same
// team: equal, one contains the other above the containment floor, or their
// leading city substrings agree above the city floor.
func (m *Matcher) namesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len(a) >= m.minContainLen && len(b) >= m.minContainLen &&
		(strings.Contains(a, b) || strings.Contains(b, a)) {
		return true
	}
	return commonPrefixLen(a, b) >= m.minCityLen
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// splitTitle extracts the two team fragments from a free-text market title.
func splitTitle(title string) (first, second string, ok bool) {
	seps := []string{" vs. ", " vs ", " v. ", " v ", " at ", " @ "}
	lower := strings.ToLower(title)
	for _, sep := range seps {
		if idx := strings.Index(lower, sep); idx > 0 {
			return title[:idx], title[idx+len(sep):], true
		}
	}
	return "", "", false
}

// Normalize lowercases a team name, strips accents, drops franchise suffix
// tokens and removes everything but letters, digits and single spaces.
func Normalize(name string) string {
	name = strings.ToLower(name)

	// Remove accents.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	name, _, _ = transform.String(t, name)

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}

	fields := strings.Fields(b.String())
	for len(fields) > 1 && franchiseSuffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}
