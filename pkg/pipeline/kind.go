package pipeline

// FindingKind is the closed set of finding types the pipelines act on.
type FindingKind int

const (
	KindUnrecognized FindingKind = iota
	KindCipherStatistics
	KindDigestStatistics
	KindInsecureCryptoAlgorithm
)

var kindTypes = map[string]FindingKind{
	"CryptoStatistics_CipherStatistics":           KindCipherStatistics,
	"CryptoStatistics_DigestStatistics":           KindDigestStatistics,
	"CryptoCheckAnalysis_InsecureCryptoAlgorithm": KindInsecureCryptoAlgorithm,
}

// KindOf maps a finding type string to its kind. Unknown types map to
// KindUnrecognized.
func KindOf(findingType string) FindingKind {
	return kindTypes[findingType]
}

func (k FindingKind) String() string {
	switch k {
	case KindCipherStatistics:
		return "CryptoStatistics_CipherStatistics"
	case KindDigestStatistics:
		return "CryptoStatistics_DigestStatistics"
	case KindInsecureCryptoAlgorithm:
		return "CryptoCheckAnalysis_InsecureCryptoAlgorithm"
	default:
		return "unrecognized"
	}
}
