package normalizer

import (
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
)

// nameRule is one category-specific block of the display-name cascade.
// A rule applies when the lower-cased category contains its marker.
type nameRule struct {
	marker  string
	cascade []fieldPath
}

// nameRules run in order; every rule whose marker matches is tried before
// the general cascade. The order per category decides which name a business
// shows under, so it must not be reshuffled.
var nameRules = []nameRule{
	{
		marker: "venue",
		cascade: []fieldPath{
			top("venueName"),
			form("venueName"),
			top("businessName"),
			form("businessName"),
			form("businessTitle"),
		},
	},
	{
		marker: "entertainment",
		cascade: []fieldPath{
			top("stageName"),
			form("stageName"),
			form("stageArtistName"),
			top("businessName"),
			form("businessName"),
		},
	},
}

// generalNameCascade is used for every other category and as the
// continuation when a category block finds nothing.
var generalNameCascade = []fieldPath{
	top("businessName"),
	form("businessName"),
	top("businessTitle"),
	form("businessTitle"),
	top("stageName"),
	top("venueName"),
	top("name"),
	top("providerName"),
	top("vendorName"),
	top("contactName"),
}

// ResolveName picks the display name for doc. category is an optional hint;
// when empty the document's own category field is used. Returns "" when no
// candidate is a non-blank string other than "N/A".
func ResolveName(doc document.Document, category string) string {
	hint := strings.ToLower(category)
	if hint == "" {
		stored, _ := doc.Str("category")
		hint = strings.ToLower(stored)
	}

	for _, rule := range nameRules {
		if !strings.Contains(hint, rule.marker) {
			continue
		}
		if name, ok := firstOf(doc, rule.cascade, validName); ok {
			return name
		}
	}

	if name, ok := firstOf(doc, generalNameCascade, validName); ok {
		return name
	}
	return ""
}
