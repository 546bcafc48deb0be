// Package normalize maps legacy or misspelled commander and card names to
// their canonical form.
package normalize

// Normalizer holds read-only rename tables. The zero value passes every
// name through unchanged.
type Normalizer struct {
	commanders map[string]string
	cards      map[string]string
}

// New copies the given rename tables (old name -> canonical name).
func New(commanderRenames, cardRenames map[string]string) *Normalizer {
	return &Normalizer{
		commanders: clone(commanderRenames),
		cards:      clone(cardRenames),
	}
}

// Commander returns the canonical commander name. Matching is exact and
// case-sensitive.
func (n *Normalizer) Commander(name string) string {
	return lookup(n.commanders, name)
}

// Card returns the canonical card name. Matching is exact and case-sensitive.
func (n *Normalizer) Card(name string) string {
	return lookup(n.cards, name)
}

func lookup(table map[string]string, name string) string {
	if name == "" {
		return name
	}
	if canonical, ok := table[name]; ok {
		return canonical
	}
	return name
}

func clone(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
