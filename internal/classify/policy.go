// Package classify turns a raw model score into a label and an advisory text.
package classify

type Result string

const (
	Cancer    Result = "Cancer"
	NonCancer Result = "Non-cancer"
)

// Threshold is exclusive: a score equal to it is Non-cancer.
const Threshold = 0.5

var suggestions = map[Result]string{
	Cancer:    "Segera periksa ke dokter!",
	NonCancer: "Penyakit kanker tidak terdeteksi.",
}

func (r Result) Valid() bool {
	_, ok := suggestions[r]
	return ok
}

// Classify maps a confidence score in [0,1] to a result and its suggestion.
func Classify(score float64) (Result, string) {
	result := NonCancer
	if score > Threshold {
		result = Cancer
	}
	return result, suggestions[result]
}

// SuggestionFor returns "" for unknown results.
func SuggestionFor(r Result) string {
	return suggestions[r]
}
