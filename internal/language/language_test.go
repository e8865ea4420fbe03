package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"en":      "en",
		" EN ":    "en",
		"eng":     "en",
		"English": "en",
		"fre":     "fr",
		"pt-BR":   "pt",
		"en_US":   "en",
		"tlh":     "tlh",
		"":        "",
	}
	for input, want := range tests {
		if got := Normalize(input); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"":      "English",
		"de":    "German",
		"jpn":   "Japanese",
		"es-MX": "Spanish",
		"xx":    "XX",
	}
	for input, want := range tests {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}
