package reduce

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	maxCustomLanguages        = 100
	maxCustomWordsPerLanguage = 10000
)

// english is the built-in stopword list. Additional languages are supplied
// through custom stopwords on the manager.
var english = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
a about above after again against all am an and any are aren't as at be
because been before being below between both but by can't cannot could
couldn't did didn't do does doesn't doing don't down during each few for
from further had hadn't has hasn't have haven't having he he'd he'll he's
her here here's hers herself him himself his how how's i i'd i'll i'm i've
if in into is isn't it it's its itself let's me more most mustn't my myself
no nor not of off on once only or other ought our ours ourselves out over
own same shan't she she'd she'll she's should shouldn't so some such than
that that's the their theirs them themselves then there there's these they
they'd they'll they're they've this those through to too under until up
very was wasn't we we'd we'll we're we've were weren't what what's when
when's where where's which while who who's whom why why's with won't would
wouldn't you you'd you'll you're you've your yours yourself yourselves`) {
		english[w] = struct{}{}
	}
}

// Stopwords manages per-language stopword sets with optional custom
// additions. The zero value is not usable; use NewStopwords.
type Stopwords struct {
	mu     sync.RWMutex
	custom map[string]map[string]struct{}
}

// NewStopwords builds a manager seeded with the given custom stopwords,
// keyed by language code.
func NewStopwords(custom map[string][]string) (*Stopwords, error) {
	if len(custom) > maxCustomLanguages {
		return nil, fmt.Errorf("reduce: too many custom stopword languages: %d (max %d)", len(custom), maxCustomLanguages)
	}
	s := &Stopwords{custom: make(map[string]map[string]struct{})}
	for lang, words := range custom {
		if len(words) > maxCustomWordsPerLanguage {
			return nil, fmt.Errorf("reduce: too many custom stopwords for language %q: %d (max %d)", lang, len(words), maxCustomWordsPerLanguage)
		}
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[strings.ToLower(w)] = struct{}{}
		}
		s.custom[lang] = set
	}
	return s, nil
}

// Add registers additional stopwords for a language.
func (s *Stopwords) Add(language string, words ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.custom[language]
	if !ok {
		if len(s.custom) >= maxCustomLanguages {
			return fmt.Errorf("reduce: cannot add more custom stopword languages: already have %d (max %d)", len(s.custom), maxCustomLanguages)
		}
		set = make(map[string]struct{})
		s.custom[language] = set
	}
	if len(set)+len(words) > maxCustomWordsPerLanguage {
		return fmt.Errorf("reduce: too many custom stopwords for language %q (max %d)", language, maxCustomWordsPerLanguage)
	}
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return nil
}

// HasLanguage reports whether any stopwords exist for the language.
func (s *Stopwords) HasLanguage(language string) bool {
	if language == "en" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.custom[language]
	return ok
}

// Languages returns the sorted list of languages with stopwords.
func (s *Stopwords) Languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{"en"}
	for lang := range s.custom {
		if lang != "en" {
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return out
}

// set returns the lowercased stopword set for a language, merging the
// built-in list with custom additions.
func (s *Stopwords) set(language string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	custom := s.custom[language]
	var base map[string]struct{}
	if language == "en" {
		base = english
	}
	if len(custom) == 0 {
		return base
	}
	merged := make(map[string]struct{}, len(base)+len(custom))
	for w := range base {
		merged[w] = struct{}{}
	}
	for w := range custom {
		merged[w] = struct{}{}
	}
	return merged
}
