package normalizer

import (
	"github.com/gigmarket/marketplace/backend/internal/domain/document"
)

// Images holds the resolved photo list and the primary image.
type Images struct {
	ImageURLs       []string
	PrimaryImageURL *string
}

// galleryFields are concatenated in this order to build the photo list.
var galleryFields = []string{"imageUrls", "businessPhotos", "photos"}

// primaryImageCascade decides PrimaryImageURL. It ranks coverPhoto and the
// arrays differently from the ordering of ImageURLs; the two are not unified.
var primaryImageCascade = []func(document.Document) (string, bool){
	scalar("primaryImageUrl"),
	scalar("coverPhoto"),
	firstElement("businessPhotos"),
	firstElement("photos"),
	firstElement("imageUrls"),
}

// ResolveImages collects unique photo URLs from doc. A distinct coverPhoto is
// placed first, then a distinct primaryImageUrl ahead of it.
func ResolveImages(doc document.Document) Images {
	urls := newOrderedSet()
	for _, field := range galleryFields {
		for _, url := range stringElements(doc.Get(field)) {
			urls.append(url)
		}
	}

	for _, field := range []string{"coverPhoto", "primaryImageUrl"} {
		if url, ok := nonEmpty(doc.Get(field)); ok {
			urls.prepend(url)
		}
	}

	images := Images{ImageURLs: urls.items()}
	for _, candidate := range primaryImageCascade {
		if url, ok := candidate(doc); ok {
			images.PrimaryImageURL = strPtr(url)
			break
		}
	}
	return images
}

func scalar(field string) func(document.Document) (string, bool) {
	return func(doc document.Document) (string, bool) {
		return nonEmpty(doc.Get(field))
	}
}

func firstElement(field string) func(document.Document) (string, bool) {
	return func(doc document.Document) (string, bool) {
		items, ok := doc.Get(field).AsArray()
		if !ok || len(items) == 0 {
			return "", false
		}
		return nonEmpty(items[0])
	}
}

func nonEmpty(v document.Value) (string, bool) {
	s, ok := v.AsString()
	return s, ok && s != ""
}

// stringElements returns the non-empty string entries of an array value.
func stringElements(v document.Value) []string {
	items, ok := v.AsArray()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := nonEmpty(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// orderedSet keeps first-seen order with set membership.
type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) append(v string) {
	if _, dup := s.seen[v]; dup {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *orderedSet) prepend(v string) {
	if _, dup := s.seen[v]; dup {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append([]string{v}, s.order...)
}

func (s *orderedSet) items() []string {
	if s.order == nil {
		return []string{}
	}
	return s.order
}
