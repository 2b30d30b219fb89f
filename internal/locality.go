package internal

import (
	"math/rand/v2"
	"strings"

	"github.com/lychee-technology/datamimic"
)

// localeTable holds the region-specific parts of names, addresses and phone numbers.
// Formats use '#' for a digit and '?' for an upper-case letter.
type localeTable struct {
	firstNames     []string
	lastNames      []string
	cities         []string
	phoneFormats   []string
	postcodeFormat string
	streetFormat   string // number, name, suffix
}

var localeTables = map[datamimic.Locality]*localeTable{
	datamimic.LocalityUS: {
		firstNames: []string{"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
			"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica"},
		lastNames: []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
			"Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson", "Anderson", "Thomas", "Taylor"},
		cities: []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix", "Philadelphia",
			"San Antonio", "San Diego", "Dallas", "Austin", "Seattle", "Denver", "Boston", "Portland"},
		phoneFormats:   []string{"(###) ###-####", "###-###-####", "+1-###-###-####"},
		postcodeFormat: "#####",
		streetFormat:   "%s %s %s",
	},
	datamimic.LocalityUK: {
		firstNames: []string{"Oliver", "Amelia", "George", "Isla", "Harry", "Ava", "Jack", "Mia",
			"Charlie", "Ivy", "Thomas", "Lily", "Oscar", "Florence", "William", "Freya"},
		lastNames: []string{"Smith", "Jones", "Taylor", "Brown", "Williams", "Wilson", "Johnson", "Davies",
			"Robinson", "Wright", "Thompson", "Evans", "Walker", "White", "Roberts", "Green"},
		cities: []string{"London", "Birmingham", "Manchester", "Leeds", "Glasgow", "Liverpool", "Bristol",
			"Sheffield", "Edinburgh", "Cardiff", "Leicester", "Nottingham", "Newcastle", "Oxford"},
		phoneFormats:   []string{"+44(0)#### ######", "0#### ######", "0##0 ### ####"},
		postcodeFormat: "??# #??",
		streetFormat:   "%s %s %s",
	},
	datamimic.LocalityCanada: {
		firstNames: []string{"Liam", "Olivia", "Noah", "Emma", "Lucas", "Charlotte", "Benjamin", "Chloe",
			"Ethan", "Sophie", "Nathan", "Zoe", "Gabriel", "Emily", "Samuel", "Léa"},
		lastNames: []string{"Smith", "Brown", "Tremblay", "Martin", "Roy", "Wilson", "Gagnon", "Johnson",
			"MacDonald", "Taylor", "Côté", "Campbell", "Anderson", "Leblanc", "Lee", "Gauthier"},
		cities: []string{"Toronto", "Montreal", "Vancouver", "Calgary", "Edmonton", "Ottawa", "Winnipeg",
			"Quebec City", "Hamilton", "Halifax", "Victoria", "Saskatoon", "Regina", "Kelowna"},
		phoneFormats:   []string{"###-###-####", "(###) ###-####", "+1 ### ### ####"},
		postcodeFormat: "?#? #?#",
		streetFormat:   "%s %s %s",
	},
	datamimic.LocalityAustralia: {
		firstNames: []string{"Jack", "Charlotte", "William", "Olivia", "Oliver", "Ava", "Noah", "Mia",
			"Thomas", "Grace", "Lachlan", "Chloe", "Cooper", "Ruby", "Riley", "Matilda"},
		lastNames: []string{"Smith", "Jones", "Williams", "Brown", "Wilson", "Taylor", "Johnson", "White",
			"Martin", "Anderson", "Thompson", "Nguyen", "Thomas", "Walker", "Harris", "Ryan"},
		cities: []string{"Sydney", "Melbourne", "Brisbane", "Perth", "Adelaide", "Gold Coast", "Canberra",
			"Newcastle", "Wollongong", "Hobart", "Geelong", "Townsville", "Cairns", "Darwin"},
		phoneFormats:   []string{"+61 # #### ####", "0# #### ####", "04## ### ###"},
		postcodeFormat: "####",
		streetFormat:   "%s %s %s",
	},
	datamimic.LocalityIndia: {
		firstNames: []string{"Aarav", "Ananya", "Vihaan", "Diya", "Arjun", "Saanvi", "Rohan", "Isha",
			"Aditya", "Priya", "Karan", "Kavya", "Rahul", "Neha", "Vikram", "Pooja"},
		lastNames: []string{"Sharma", "Verma", "Patel", "Gupta", "Singh", "Kumar", "Reddy", "Iyer",
			"Nair", "Mehta", "Joshi", "Chopra", "Das", "Rao", "Bose", "Kapoor"},
		cities: []string{"Mumbai", "Delhi", "Bengaluru", "Hyderabad", "Ahmedabad", "Chennai", "Kolkata",
			"Pune", "Jaipur", "Lucknow", "Kanpur", "Nagpur", "Indore", "Bhopal"},
		phoneFormats:   []string{"+91 ##########", "+91 ##### #####", "0## ########"},
		postcodeFormat: "######",
		streetFormat:   "%s, %s %s",
	},
}

func lookupLocale(l datamimic.Locality) (*localeTable, error) {
	t, ok := localeTables[l]
	if !ok {
		return nil, datamimic.NewUnsupportedLocalityError(string(l))
	}
	return t, nil
}

// fillPattern replaces '#' with a random digit and '?' with a random upper-case letter.
func fillPattern(rng *rand.Rand, pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for _, r := range pattern {
		switch r {
		case '#':
			b.WriteByte(byte('0' + rng.IntN(10)))
		case '?':
			b.WriteByte(byte('A' + rng.IntN(26)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func pick[T any](rng *rand.Rand, values []T) T {
	return values[rng.IntN(len(values))]
}

var universities = []string{
	"University of Delhi", "Indian Institute of Science", "University of Mumbai", "University of Oxford",
	"University of Cambridge", "Harvard University", "Stanford University", "University of Toronto",
	"University of British Columbia", "University of Melbourne", "University of Sydney", "Delhi University",
	"Amity University", "BITS Pilani",
}

var modelsByMake = map[string][]string{
	"Toyota":        {"Camry", "Corolla", "RAV4", "Highlander"},
	"Honda":         {"Civic", "Accord", "CR-V", "Pilot"},
	"Ford":          {"F-150", "Mustang", "Escape", "Explorer"},
	"BMW":           {"3 Series", "5 Series", "X3", "X5"},
	"Tesla":         {"Model 3", "Model Y", "Model S", "Model X"},
	"Mercedes-Benz": {"C-Class", "E-Class", "GLC", "GLE"},
	"Audi":          {"A4", "A6", "Q5", "Q7"},
	"Hyundai":       {"Elantra", "Sonata", "Tucson", "Santa Fe"},
	"Kia":           {"Forte", "K5", "Sportage", "Sorento"},
	"Nissan":        {"Altima", "Sentra", "Rogue", "Titan"},
}

var genericModels = []string{"GenericA", "GenericB", "GenericC"}
