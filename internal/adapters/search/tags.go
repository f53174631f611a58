package search

import (
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
)

// MaxIndexedTags bounds the tag bag stored per provider
const MaxIndexedTags = 50

// buildProviderTags collects lower-cased search terms for a provider in
// first-seen order.
func buildProviderTags(provider *entities.Provider) []string {
	if provider == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var tags []string
	add := func(terms ...string) {
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || len(tags) >= MaxIndexedTags {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}

	add(provider.DisplayName, string(provider.Category))
	add(deref(provider.City), deref(provider.State))
	if provider.ServiceLocation != nil {
		add(strings.Split(*provider.ServiceLocation, ",")...)
	}
	return tags
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
