package correct

// Stage names the step of the cascade that decided a result.
type Stage string

const (
	StageTypo          Stage = "typo"
	StageDictionary    Stage = "dictionary"
	StageUpgrade       Stage = "upgrade"
	StageTransposition Stage = "transposition"
	StagePhonetic      Stage = "phonetic"
	StageFuzzy1        Stage = "fuzzy1"
	StageFuzzy2        Stage = "fuzzy2"
	StageNone          Stage = "none"
)

// Result is the outcome of Explain.
type Result struct {
	Original  string
	Corrected string
	Stage     Stage
}

// Changed reports whether the word was rewritten.
func (r Result) Changed() bool {
	return r.Original != r.Corrected
}

// Policy holds the tunable thresholds of the cascade. Lengths count letters,
// not bytes.
type Policy struct {
	// A dictionary word is upgraded to a distance 1 neighbour that is more
	// than UpgradeRatio times as frequent.
	UpgradeRatio  uint32
	UpgradeMinLen int
	UpgradeMaxLen int

	// Words of at most ShortWordLen letters only take distance 1 candidates
	// scoring above ShortWordMinFreq.
	ShortWordLen     int
	ShortWordMinFreq uint32

	// Distance 2 candidates may differ in length by at most MaxLengthDelta.
	MaxLengthDelta int

	// MaxWordLen bounds the work done per token. Longer tokens skip every
	// step, typo table and dictionary included, and come back unchanged with
	// StageNone. Zero disables the bound.
	MaxWordLen int
}

// DefaultPolicy returns the thresholds tuned for the bundled Portuguese data.
func DefaultPolicy() Policy {
	return Policy{
		UpgradeRatio:     15,
		UpgradeMinLen:    2,
		UpgradeMaxLen:    6,
		ShortWordLen:     3,
		ShortWordMinFreq: 40000,
		MaxLengthDelta:   2,
		MaxWordLen:       64,
	}
}
