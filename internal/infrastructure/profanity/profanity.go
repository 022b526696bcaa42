package profanity

import (
	"embed"
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"sync"
)

//go:embed words.json
var jsonData embed.FS

var (
	defaultFilter *Filter
	once          sync.Once
)

func loadBannedWords() []string {
	data, err := jsonData.ReadFile("words.json")
	if err != nil {
		log.Fatalf("Failed to read embedded file: %s", err)
	}

	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		log.Fatalf("Failed to unmarshal JSON: %s", err)
	}
	return words
}

// Filter screens wall messages for banned words, tolerating common
// leetspeak substitutions and separator padding.
type Filter struct {
	regex *regexp.Regexp
}

func NewFilter() *Filter {
	once.Do(func() {
		defaultFilter = &Filter{
			regex: buildRegex(loadBannedWords()),
		}
	})

	return defaultFilter
}

func (f *Filter) Contains(text string) bool {
	if text == "" {
		return false
	}

	return f.regex.MatchString(normalize(text))
}

var leet = strings.NewReplacer(
	"@", "a", "4", "a",
	"3", "e", "€", "e",
	"1", "i", "!", "i", "|", "i",
	"0", "o",
	"$", "s", "5", "s",
	"7", "t", "+", "t",
)

var separators = regexp.MustCompile(`[\s_.\-*/\\|]+`)

func normalize(text string) string {
	s := strings.ToLower(text)
	s = leet.Replace(s)
	return separators.ReplaceAllString(s, " ")
}

func buildRegex(words []string) *regexp.Regexp {
	patterns := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}

		// Allow separator padding and doubled letters inside the word:
		// the normalized "f u u c k" still matches "fuck".
		letters := strings.Split(regexp.QuoteMeta(word), "")
		patterns = append(patterns, strings.Join(letters, `+[^\p{L}]*`)+`+`)
	}

	expression := `(?:^|[^\p{L}])(?:` + strings.Join(patterns, "|") + `)(?:$|[^\p{L}])`

	return regexp.MustCompile(expression)
}
