package transform

// Preset bundles are named, immutable Spec lists that can be composed by
// concatenation.
var (
	PresetSafe = []Spec{
		{Name: "cleancache"},
		{Name: "maxtoken", Options: Options{"maxTokens": float64(4096)}},
	}

	PresetStrict = []Spec{
		{Name: "cleancache"},
		{Name: "maxtoken", Options: Options{"maxTokens": float64(2048), "strict": true}},
		{Name: "sampling", Options: Options{"maxTemperature": 0.7, "maxTopP": 0.9}},
	}

	PresetBalanced = []Spec{
		{Name: "cleancache"},
		{Name: "sampling", Options: Options{"defaultTemperature": 0.7}},
		{Name: "maxtoken", Options: Options{"maxTokens": float64(8192)}},
	}

	PresetQuality = []Spec{
		{Name: "sampling", Options: Options{"minTemperature": 0.0, "maxTemperature": 1.0}},
	}
)

// Presets maps a preset name to its Spec bundle.
var Presets = map[string][]Spec{
	"safe":     PresetSafe,
	"strict":   PresetStrict,
	"balanced": PresetBalanced,
	"quality":  PresetQuality,
}

// Compose concatenates named presets (and any ad-hoc extra specs) into a
// single ordered pipeline, in the order given.
func Compose(names []string, extra ...Spec) []Spec {
	var out []Spec
	for _, n := range names {
		out = append(out, Presets[n]...)
	}
	return append(out, extra...)
}
