package airquality

import "strings"

// San Joaquin Valley air basin coverage. Geocoded locations outside
// these cities and counties are rejected.
var (
	valleyCities = []string{
		"Fresno", "Bakersfield", "Clovis", "Modesto", "Stockton", "Visalia",
		"Atwater", "Ceres", "Corcoran", "Delano", "Dinuba", "Galt", "Hanford",
		"Lathrop", "Lemoore", "Lodi", "Los Banos", "Madera", "Manteca",
		"Merced", "Oakdale", "Patterson", "Porterville", "Reedley",
		"Riverbank", "Sanger", "Selma", "Shafter", "Tracy", "Tulare",
		"Turlock", "Wasco",
		"Arvin", "Avenal", "Chowchilla", "Coalinga", "Dos Palos", "Escalon",
		"Exeter", "Farmersville", "Firebaugh", "Fowler", "Gustine", "Hughson",
		"Kerman", "Kettleman City", "Keyes", "Kingsburg", "Lindsay",
		"Livingston", "McFarland", "Mendota", "Newman", "Orange Cove",
		"Parlier", "Ripon", "San Joaquin", "Taft", "Waterford", "Woodlake",
	}

	valleyCounties = []string{
		"Fresno County", "Kern County", "Kings County", "Madera County",
		"Merced County", "San Joaquin County", "Stanislaus County",
		"Tulare County",
	}
)

// Location is a geocoded place.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Admin2    string  `json:"admin2"`
	Admin3    string  `json:"admin3"`
}

// InValley reports whether a geocoded location falls inside the San
// Joaquin Valley air basin. The city is matched against the geocoder's
// admin3 field or the place name, the county against admin2 with or
// without a trailing " County".
func InValley(loc Location) bool {
	city := strings.TrimSpace(loc.Admin3)
	name := strings.TrimSpace(loc.Name)
	for _, c := range valleyCities {
		if city == c || name == c {
			return true
		}
	}

	county := strings.TrimSpace(loc.Admin2)
	if county == "" {
		return false
	}
	for _, c := range valleyCounties {
		if county == c || county+" County" == c || strings.HasPrefix(c, county) {
			return true
		}
	}
	return false
}
