package language

import "strings"

type entry struct {
	code2   string
	code3   []string
	display string
}

var languages = []entry{
	{"en", []string{"eng"}, "English"},
	{"es", []string{"spa"}, "Spanish"},
	{"fr", []string{"fra", "fre"}, "French"},
	{"de", []string{"deu", "ger"}, "German"},
	{"it", []string{"ita"}, "Italian"},
	{"pt", []string{"por"}, "Portuguese"},
	{"ja", []string{"jpn"}, "Japanese"},
	{"ko", []string{"kor"}, "Korean"},
	{"zh", []string{"zho", "chi"}, "Chinese"},
	{"ru", []string{"rus"}, "Russian"},
	{"ar", []string{"ara"}, "Arabic"},
	{"hi", []string{"hin"}, "Hindi"},
	{"nl", []string{"nld", "dut"}, "Dutch"},
	{"pl", []string{"pol"}, "Polish"},
	{"sv", []string{"swe"}, "Swedish"},
	{"da", []string{"dan"}, "Danish"},
	{"no", []string{"nor"}, "Norwegian"},
	{"fi", []string{"fin"}, "Finnish"},
	{"tr", []string{"tur"}, "Turkish"},
	{"id", []string{"ind"}, "Indonesian"},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		m[strings.ToLower(e.display)] = e
		for _, code := range e.code3 {
			m[code] = e
		}
	}
	return m
}()

// lookup accepts ISO 639-1/639-2 codes, English names, and regional tags
// such as "pt-BR" or "en_US".
func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := index[code]; ok {
		return e
	}
	if base, _, found := strings.Cut(strings.ReplaceAll(code, "_", "-"), "-"); found {
		return index[base]
	}
	return nil
}

// Normalize maps a recognized code or name to ISO 639-1. Unrecognized input
// is returned lowercased so custom codes still reach providers.
func Normalize(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	return strings.ToLower(strings.TrimSpace(code))
}

// DisplayName returns the English name for code, the uppercased code when it
// is unknown, or "English" for empty input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "English"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
