package ncdr

// The 21 Swedish county letter codes accepted by the reporting schema.
// Västra Götaland kept the pre-merger codes of its three constituent
// counties plus the regional shorthand as synonyms, all folding to "O".
var countyNames = map[string]string{
	"AB": "Stockholm",
	"C":  "Uppsala",
	"D":  "Södermanland",
	"E":  "Östergötland",
	"F":  "Jönköping",
	"G":  "Kronoberg",
	"H":  "Kalmar",
	"I":  "Gotland",
	"K":  "Blekinge",
	"M":  "Skåne",
	"N":  "Halland",
	"O":  "Västra Götaland",
	"S":  "Värmland",
	"T":  "Örebro",
	"U":  "Västmanland",
	"W":  "Dalarna",
	"X":  "Gävleborg",
	"Y":  "Västernorrland",
	"Z":  "Jämtland",
	"AC": "Västerbotten",
	"BD": "Norrbotten",
}

var vastraGotalandSynonyms = map[string]struct{}{
	"P":   {},
	"R":   {},
	"VG":  {},
	"VGR": {},
}

// FoldCounty normalizes a county alias to its canonical code. The second
// return value is false for codes the schema does not accept.
func FoldCounty(alias string) (string, bool) {
	if _, ok := vastraGotalandSynonyms[alias]; ok {
		return "O", true
	}
	if _, ok := countyNames[alias]; ok {
		return alias, true
	}
	return "", false
}

// CountyName returns the display name of a canonical county code.
func CountyName(code string) (string, bool) {
	name, ok := countyNames[code]
	return name, ok
}
