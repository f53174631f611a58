package normalizer

import (
	"regexp"
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
)

const commaSplit = ","

var (
	zipPrefix = regexp.MustCompile(`^\d{5}`)
	stateCode = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// Location is the resolved city/state pair plus the free-form service location.
// The three fields are resolved independently and may disagree.
type Location struct {
	City            *string
	State           *string
	ServiceLocation *string
}

// locationStep is one entry of a city or state cascade. A nil category
// filter means the step applies to every category.
type locationStep struct {
	only    *entities.Category
	extract func(doc document.Document) (string, bool)
}

func fields(paths ...fieldPath) locationStep {
	return locationStep{extract: func(doc document.Document) (string, bool) {
		return firstOf(doc, paths, presentString)
	}}
}

func onlyFor(c entities.Category, step locationStep) locationStep {
	step.only = &c
	return step
}

func (s locationStep) appliesTo(c entities.Category) bool {
	return s.only == nil || *s.only == c
}

var serviceLocationCascade = []fieldPath{
	form("serviceLocation"),
	top("serviceLocation"),
	form("serviceAreaLocation"),
	top("serviceAreaLocation"),
}

var basedInCascade = []fieldPath{top("basedIn"), form("basedIn")}

var freeTextCascade = []fieldPath{top("location"), form("location")}

var cityCascade = []locationStep{
	fields(
		top("city"),
		form("city"),
		nested("residentialAddress", "city"),
		form("residentialAddress", "city"),
		top("businessCity"),
		form("businessCity"),
	),
	onlyFor(entities.CategoryVenues, fields(
		form("venueCity"),
		form("venueAddress", "city"),
	)),
	onlyFor(entities.CategoryEntertainment, locationStep{extract: basedInCity}),
	{extract: freeTextCity},
}

var stateCascade = []locationStep{
	fields(
		top("state"),
		form("state"),
		nested("residentialAddress", "state"),
		form("residentialAddress", "state"),
		top("businessState"),
		form("businessState"),
	),
	onlyFor(entities.CategoryVenues, fields(
		form("venueState"),
		form("venueAddress", "state"),
	)),
	onlyFor(entities.CategoryEntertainment, locationStep{extract: basedInState}),
	{extract: freeTextState},
}

// ResolveLocation derives city, state and service location from doc.
// Unresolved fields are nil.
func ResolveLocation(doc document.Document) Location {
	stored, _ := doc.Str("category")
	category := entities.ParseCategory(stored)

	var loc Location
	serviceLocation, hasServiceLocation := firstOf(doc, serviceLocationCascade, presentString)
	if hasServiceLocation {
		loc.ServiceLocation = strPtr(serviceLocation)
	}

	var fromService []string
	if hasServiceLocation && strings.Contains(serviceLocation, commaSplit) {
		if parts := splitParts(serviceLocation); len(parts) >= 2 {
			fromService = parts
		}
	}

	if len(fromService) >= 2 && fromService[0] != "" {
		loc.City = strPtr(fromService[0])
	} else if city, ok := runCascade(doc, category, cityCascade); ok {
		loc.City = strPtr(city)
	}

	if len(fromService) >= 2 && fromService[1] != "" {
		loc.State = strPtr(fromService[1])
	} else if state, ok := runCascade(doc, category, stateCascade); ok {
		loc.State = strPtr(state)
	}

	return loc
}

func runCascade(doc document.Document, category entities.Category, steps []locationStep) (string, bool) {
	for _, step := range steps {
		if !step.appliesTo(category) {
			continue
		}
		if s, ok := step.extract(doc); ok {
			return s, true
		}
	}
	return "", false
}

// basedInCity reads "based in" strings such as "Austin, Texas" or "Austin".
func basedInCity(doc document.Document) (string, bool) {
	basedIn, ok := firstOf(doc, basedInCascade, presentString)
	if !ok {
		return "", false
	}
	if strings.Contains(basedIn, commaSplit) {
		first := splitParts(basedIn)[0]
		return first, first != ""
	}
	return basedIn, true
}

func basedInState(doc document.Document) (string, bool) {
	basedIn, ok := firstOf(doc, basedInCascade, presentString)
	if !ok || !strings.Contains(basedIn, commaSplit) {
		return "", false
	}
	parts := splitParts(basedIn)
	return parts[1], parts[1] != ""
}

func freeTextParts(doc document.Document) []string {
	text, ok := firstOf(doc, freeTextCascade, presentString)
	if !ok || !strings.Contains(text, commaSplit) {
		return nil
	}
	return splitParts(text)
}

// freeTextCity applies the ZIP heuristic to strings like
// "123 Main St, Springfield, IL, 62704".
func freeTextCity(doc document.Document) (string, bool) {
	parts := freeTextParts(doc)
	n := len(parts)
	var city string
	switch {
	case n == 2:
		city = parts[0]
	case n >= 3:
		if zipPrefix.MatchString(parts[n-1]) {
			city = cityBeforeZip(parts)
		} else {
			city = parts[n-2]
		}
	}
	return city, city != ""
}

// cityBeforeZip picks the city out of parts that end in a ZIP code.
func cityBeforeZip(parts []string) string {
	if len(parts) >= 3 {
		return parts[len(parts)-3]
	}
	return parts[0]
}

func freeTextState(doc document.Document) (string, bool) {
	parts := freeTextParts(doc)
	n := len(parts)
	if n < 2 {
		return "", false
	}
	last := parts[n-1]
	var state string
	switch {
	case zipPrefix.MatchString(last) && n >= 3:
		state = parts[n-2]
	case stateCode.MatchString(last):
		state = strings.ToUpper(last)
	default:
		state = last
	}
	return state, state != ""
}
