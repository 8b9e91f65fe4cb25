package geo

import "errors"

var ErrUnknownCountry = errors.New("unknown country")

type CountryInfo struct {
	Name    string   `json:"name"`
	ISO2    string   `json:"iso2"` // lower-case, as the content service expects
	Aliases []string `json:"aliases"`
}

type Resolver interface {
	ResolveCountry(name string) (CountryInfo, error)
}
