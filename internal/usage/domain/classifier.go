package domain

import (
	"net/url"
	"strings"
)

var widgetPages = []string{"widget.html", "country.html", "place.html"}

// IsRealInternalNavigation reports whether a referer points at one of the
// widget's own pages. Absent or malformed referers are external.
func IsRealInternalNavigation(referer string) bool {
	if referer == "" {
		return false
	}
	u, err := url.Parse(referer)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, page := range widgetPages {
		if strings.Contains(path, page) {
			return true
		}
	}
	return false
}

type Classification struct {
	EventType string
	IsOpening bool
}

// Classify labels an event for reporting. It never gates access; quota
// decisions are made before classification runs.
func Classify(widgetType, countryName, placeName string, internal bool) Classification {
	if !internal {
		return Classification{EventType: EventTypeOpen, IsOpening: true}
	}
	switch {
	case placeName != "":
		return Classification{EventType: EventTypeNavigatePlace}
	case countryName != "":
		return Classification{EventType: EventTypeNavigateCountry}
	case widgetType == "" || widgetType == "index":
		return Classification{EventType: EventTypeNavigateIndex}
	default:
		return Classification{EventType: EventTypeNavigate}
	}
}
