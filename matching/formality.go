package matching

import "strings"

var roleBaseFormality = map[Role]int{
	RoleOuterwear: 6,
	RoleTop:       4,
	RoleBottom:    5,
	RoleFootwear:  5,
	RoleAccessory: 4,
}

// Each group adjusts at most once, however many of its words appear.
var formalityKeywords = []struct {
	words []string
	delta int
}{
	{[]string{"suit", "formal"}, 3},
	{[]string{"dress"}, 2},
	{[]string{"casual", "t-shirt"}, -2},
	{[]string{"jeans"}, -1},
}

// EstimateFormality derives a 1..10 formality score when the classifier
// did not provide one: a base per role, adjusted by keywords found in the
// item's name and description.
func EstimateFormality(role Role, text string) int {
	score, ok := roleBaseFormality[role]
	if !ok {
		score = roleBaseFormality[RoleTop]
	}
	folded := foldKey(text)
	for _, group := range formalityKeywords {
		for _, word := range group.words {
			if strings.Contains(folded, word) {
				score += group.delta
				break
			}
		}
	}
	return clampFormality(score)
}
