package poster

import "strings"

// DefaultCountry is used for makes missing from the table.
const DefaultCountry = "de"

// Countries maps lowercase make names to ISO country codes.
type Countries map[string]string

// DefaultCountries returns the built-in make table.
func DefaultCountries() Countries {
	return Countries{
		"audi": "de", "bmw": "de", "mercedes": "de", "mercedes-benz": "de",
		"volkswagen": "de", "vw": "de", "porsche": "de", "opel": "de",

		"toyota": "jp", "honda": "jp", "nissan": "jp", "mazda": "jp",
		"subaru": "jp", "mitsubishi": "jp", "lexus": "jp", "infiniti": "jp",
		"suzuki": "jp", "acura": "jp",

		"ford": "us", "chevrolet": "us", "chevy": "us", "tesla": "us",
		"dodge": "us", "jeep": "us", "cadillac": "us", "buick": "us",
		"chrysler": "us", "gmc": "us", "lincoln": "us",

		"ferrari": "it", "lamborghini": "it", "fiat": "it", "alfa romeo": "it",
		"maserati": "it", "pagani": "it",

		"peugeot": "fr", "renault": "fr", "citroen": "fr", "bugatti": "fr",

		"jaguar": "gb", "land rover": "gb", "bentley": "gb", "rolls-royce": "gb",
		"aston martin": "gb", "mclaren": "gb", "lotus": "gb", "mini": "gb",

		"hyundai": "kr", "kia": "kr", "genesis": "kr",
	}
}

// With returns a copy of c with overrides applied. Override keys are
// lowercased.
func (c Countries) With(overrides map[string]string) Countries {
	out := make(Countries, len(c)+len(overrides))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overrides {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(v)
	}
	return out
}

// For returns the country code of makeName, DefaultCountry when unknown.
func (c Countries) For(makeName string) string {
	if code, ok := c[strings.ToLower(makeName)]; ok && code != "" {
		return code
	}
	return DefaultCountry
}
