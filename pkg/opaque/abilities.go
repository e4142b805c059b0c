package opaque

import "slices"

// WildcardAbility grants every ability.
const WildcardAbility = "*"

func normalizeAbilities(kind Kind, abilities []string) []string {
	if len(abilities) == 0 {
		if kind.Name == AccessToken.Name {
			return []string{WildcardAbility}
		}
		return nil
	}
	return slices.Clone(abilities)
}

// Allows reports whether the token grants ability.
func (t *Token) Allows(ability string) bool {
	return slices.Contains(t.Abilities, WildcardAbility) || slices.Contains(t.Abilities, ability)
}

// Denies is the negation of Allows.
func (t *Token) Denies(ability string) bool {
	return !t.Allows(ability)
}

// Authorize returns a *ForbiddenError when the token does not grant ability.
func (t *Token) Authorize(ability string) error {
	if t.Denies(ability) {
		return &ForbiddenError{Ability: ability}
	}
	return nil
}
