package constants

// Authority names as reported by extractors and run reports.
const (
	AuthorityBenalmadena = "Ayto Benalmádena"
	AuthorityFuengirola  = "Ayto Fuengirola"
	AuthorityMalaga      = "Ayto Málaga"
	AuthorityDGT         = "DGT"
)
