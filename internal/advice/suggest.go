package advice

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	applog "tagihan/internal/log"
)

// MaxSuggestions caps every name suggestion list.
const MaxSuggestions = 5

type issuer struct {
	Name    string
	Aliases []string
	Cards   []string
}

// issuers is the offline catalogue used when no generator is configured.
// Order is popularity, which is also the order of empty-query answers.
var issuers = []issuer{
	{Name: "Bank Central Asia", Aliases: []string{"BCA"}, Cards: []string{"BCA Everyday Card", "BCA Card Platinum", "BCA Card Gold", "BCA Singapore Airlines KrisFlyer", "BCA Visa Black"}},
	{Name: "Bank Mandiri", Aliases: []string{"Mandiri"}, Cards: []string{"Mandiri Signature", "Mandiri Platinum", "Mandiri Skyz", "Mandiri Pertamina", "Mandiri Traveloka"}},
	{Name: "Bank Rakyat Indonesia", Aliases: []string{"BRI"}, Cards: []string{"BRI Easy Card", "BRI Touch", "BRI Infinite", "BRI Platinum", "BRI Travel"}},
	{Name: "Bank Negara Indonesia", Aliases: []string{"BNI"}, Cards: []string{"BNI Platinum", "BNI Titanium", "BNI Style", "BNI Garuda Indonesia", "BNI JCB Precious"}},
	{Name: "CIMB Niaga", Aliases: []string{"CIMB"}, Cards: []string{"CIMB Niaga World Mastercard", "CIMB Niaga Platinum", "CIMB Niaga Syariah Gold", "CIMB Niaga 2nd Card", "CIMB Niaga Travel"}},
	{Name: "Bank Danamon", Aliases: []string{"Danamon"}, Cards: []string{"Danamon Visa Platinum", "Danamon American Express", "Danamon Manchester United", "Danamon Lazada"}},
	{Name: "Bank Permata", Aliases: []string{"Permata"}, Cards: []string{"PermataBlack", "Permata Shopping Card", "Permata Platinum", "Permata Energy"}},
	{Name: "OCBC NISP", Aliases: []string{"OCBC"}, Cards: []string{"OCBC NISP 90N Card", "OCBC NISP Titanium", "OCBC NISP Voyage"}},
	{Name: "Bank Mega", Aliases: []string{"Mega"}, Cards: []string{"Mega Carrefour", "Mega Travel Card", "Mega Platinum"}},
	{Name: "Bank Sinarmas", Aliases: []string{"Sinarmas"}, Cards: []string{"Sinarmas Platinum", "Sinarmas Gold"}},
}

// SuggestBankNames proposes Indonesian bank names matching query. An empty
// query yields popular banks.
func (a *Advisor) SuggestBankNames(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	fallback := matchBanks(query)
	if a == nil || a.gen == nil {
		return fallback
	}

	text, err := a.generate(ctx, bankPrompt(query))
	if err != nil {
		slog.WarnContext(ctx, "Bank name generation failed, using catalogue",
			applog.FieldComponent, applog.ComponentAdvice, applog.FieldError, err)
		return fallback
	}
	if names := parseNameList(text); len(names) > 0 {
		return names
	}
	return fallback
}

// SuggestCardNames proposes card names issued by bankName. An empty bank
// yields no suggestions. An unknown bank yields popular cards of any issuer.
func (a *Advisor) SuggestCardNames(ctx context.Context, bankName, query string) []string {
	bankName = strings.TrimSpace(bankName)
	if bankName == "" {
		return []string{}
	}
	query = strings.TrimSpace(query)
	fallback := matchCards(bankName, query)
	if a == nil || a.gen == nil {
		return fallback
	}

	text, err := a.generate(ctx, cardPrompt(bankName, query))
	if err != nil {
		slog.WarnContext(ctx, "Card name generation failed, using catalogue",
			applog.FieldComponent, applog.ComponentAdvice, applog.FieldError, err)
		return fallback
	}
	if names := parseNameList(text); len(names) > 0 {
		return names
	}
	return fallback
}

func matchBanks(query string) []string {
	out := []string{}
	for _, is := range issuers {
		if len(out) == MaxSuggestions {
			break
		}
		if query == "" || containsFold(is.Name, query) || anyContainsFold(is.Aliases, query) {
			out = append(out, is.Name)
		}
	}
	return out
}

func matchCards(bankName, query string) []string {
	var pool []string
	if is, ok := findIssuer(bankName); ok {
		pool = is.Cards
	} else {
		// Unknown issuer: search every card, leading cards first.
		for _, is := range issuers {
			pool = append(pool, is.Cards[0])
		}
		for _, is := range issuers {
			pool = append(pool, is.Cards[1:]...)
		}
	}

	out := []string{}
	for _, card := range pool {
		if len(out) == MaxSuggestions {
			break
		}
		if query == "" || containsFold(card, query) {
			out = append(out, card)
		}
	}
	return out
}

func findIssuer(name string) (issuer, bool) {
	for _, is := range issuers {
		if strings.EqualFold(is.Name, name) {
			return is, true
		}
		for _, alias := range is.Aliases {
			if strings.EqualFold(alias, name) {
				return is, true
			}
		}
	}
	return issuer{}, false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func anyContainsFold(list []string, sub string) bool {
	for _, s := range list {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// parseNameList reads one name per line, tolerating list markers and quotes.
func parseNameList(text string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		name := listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		name = strings.Trim(name, "\"'` ")
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

func bankPrompt(query string) string {
	return fmt.Sprintf("Suggest up to %d names of banks operating in Indonesia that match the query below. "+
		"If the query is empty, suggest popular Indonesian banks.\n"+
		"Answer with one bank name per line and nothing else.\n\nQuery: %q\n", MaxSuggestions, query)
}

func cardPrompt(bankName, query string) string {
	return fmt.Sprintf("Suggest up to %d names of credit cards issued in Indonesia by the bank below that match the query. "+
		"If the query is empty, suggest that bank's popular cards. "+
		"If the bank is not recognised, suggest popular cards from various Indonesian banks.\n"+
		"Answer with one card name per line and nothing else.\n\nBank: %q\nQuery: %q\n", MaxSuggestions, bankName, query)
}
