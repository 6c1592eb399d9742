package serp

import "strings"

// Select picks one candidate. With preferred domains given, the first
// candidate (in collector order) whose lowercased URL contains a
// preferred domain substring wins; domains earlier in the list break
// ties within a candidate. Otherwise the first candidate wins. Returns
// nil when candidates is empty.
func Select(candidates []Candidate, preferredDomains []string) *Candidate {
	if len(candidates) == 0 {
		return nil
	}

	if len(preferredDomains) > 0 {
		for i := range candidates {
			href := strings.ToLower(candidates[i].URL)
			for _, pref := range preferredDomains {
				pref = strings.ToLower(strings.TrimSpace(pref))
				if pref != "" && strings.Contains(href, pref) {
					return &candidates[i]
				}
			}
		}
	}

	return &candidates[0]
}
