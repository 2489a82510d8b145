package foursquare

type searchResponse struct {
	Results []place `json:"results"`
}

type place struct {
	ID         string     `json:"fsq_place_id"`
	LegacyID   string     `json:"fsq_id"`
	Name       string     `json:"name"`
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Geocodes   *geocodes  `json:"geocodes"`
	Location   location   `json:"location"`
	Categories []category `json:"categories"`
	Rating     *float64   `json:"rating"`
	Price      *int       `json:"price"`
	Hours      *hours     `json:"hours"`
}

type geocodes struct {
	Main struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"main"`
}

type location struct {
	FormattedAddress string `json:"formatted_address"`
	Address          string `json:"address"`
	Locality         string `json:"locality"`
}

type category struct {
	ID   string `json:"fsq_category_id"`
	Name string `json:"name"`
}

type hours struct {
	OpenNow *bool `json:"open_now"`
}

type geotagResponse struct {
	Candidates []geotagCandidate `json:"candidates"`
}

type geotagCandidate struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Geocodes  *geocodes `json:"geocodes"`
}
