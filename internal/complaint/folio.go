package complaint

import "regexp"

var folioPattern = regexp.MustCompile(`^DEN-\d{4}-\d{4}$`)

// ValidFolio reports whether folio has the DEN-<year>-<4 digits> shape.
func ValidFolio(folio string) bool {
	return folioPattern.MatchString(folio)
}
