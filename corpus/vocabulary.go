package corpus

// Vocabulary maps between tokens and integer ids.
type Vocabulary struct {
	toID  map[string]int
	toStr []string
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		toID: make(map[string]int),
	}
}

// Add adds a token if not already present and returns its id.
func (v *Vocabulary) Add(s string) int {
	if id, ok := v.toID[s]; ok {
		return id
	}
	id := len(v.toStr)
	v.toID[s] = id
	v.toStr = append(v.toStr, s)
	return id
}

// ID returns the id of a token.
func (v *Vocabulary) ID(s string) (int, bool) {
	id, ok := v.toID[s]
	return id, ok
}

// Token returns the token with the given id. id must be in [0, Size()).
func (v *Vocabulary) Token(id int) string {
	return v.toStr[id]
}

// Size returns the number of distinct tokens.
func (v *Vocabulary) Size() int {
	return len(v.toStr)
}
