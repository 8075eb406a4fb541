package asr

import "strings"

// ModelSizes lists the whisper model variants the service accepts in job
// configuration, smallest first.
var ModelSizes = []string{
	"tiny",
	"base",
	"small",
	"medium",
	"large-v2",
	"large-v3",
}

// Languages maps the language codes we expose to their display names.
// Transcription falls back to the configured default when a job does not
// pick one.
var Languages = map[string]string{
	"zh": "Chinese",
	"en": "English",
	"ja": "Japanese",
	"ko": "Korean",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"ru": "Russian",
}

// ValidModelSize reports whether size is a known model variant.
func ValidModelSize(size string) bool {
	for _, s := range ModelSizes {
		if s == size {
			return true
		}
	}
	return false
}

// ValidLanguage reports whether code is an exposed language. "auto" is
// accepted as "no preference" and later resolves to the configured
// default.
func ValidLanguage(code string) bool {
	if strings.EqualFold(code, "auto") {
		return true
	}
	_, ok := Languages[code]
	return ok
}
