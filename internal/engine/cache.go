package engine

// Mapping is one established replacement: the same original text
// matched by the same rule always maps to the same replacement.
type Mapping struct {
	Rule        string
	Original    string
	Replacement string
}

type mappingKey struct {
	rule     string
	original string
}

// MappingCache remembers the replacement chosen for each (rule,
// original) pair within one rewriting run. Consistency is a correctness
// requirement, not an optimization: two occurrences of the same secret
// must never obfuscate differently, or a reader could correlate them.
//
// The cache grows monotonically, never evicts, and is single-writer:
// each run owns its own instance and instances are never shared.
type MappingCache struct {
	entries map[mappingKey]string
	order   []mappingKey
}

// NewMappingCache returns an empty per-run cache.
func NewMappingCache() *MappingCache {
	return &MappingCache{entries: make(map[mappingKey]string)}
}

// Seed preloads mappings established by earlier runs so separate
// invocations can reuse identical replacements.
func (c *MappingCache) Seed(mappings []Mapping) {
	for _, m := range mappings {
		key := mappingKey{rule: m.Rule, original: m.Original}
		if _, ok := c.entries[key]; ok {
			continue
		}
		c.entries[key] = m.Replacement
		c.order = append(c.order, key)
	}
}

// LookupOrCreate returns the stored replacement for (rule, original),
// invoking generate and storing its result on first encounter. When
// generate fails nothing is stored, so a later occurrence may retry.
func (c *MappingCache) LookupOrCreate(rule, original string, generate func() (string, error)) (string, error) {
	key := mappingKey{rule: rule, original: original}
	if replacement, ok := c.entries[key]; ok {
		return replacement, nil
	}

	replacement, err := generate()
	if err != nil {
		return "", err
	}

	c.entries[key] = replacement
	c.order = append(c.order, key)
	return replacement, nil
}

// Len returns the number of established mappings.
func (c *MappingCache) Len() int {
	return len(c.entries)
}

// Snapshot returns all established mappings in insertion order.
func (c *MappingCache) Snapshot() []Mapping {
	out := make([]Mapping, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, Mapping{Rule: key.rule, Original: key.original, Replacement: c.entries[key]})
	}
	return out
}
