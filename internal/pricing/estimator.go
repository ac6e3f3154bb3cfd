package pricing

import (
	"strings"
	"time"
)

// Eta is a delivery estimate: transit days plus the resulting date.
type Eta struct {
	Days int       `json:"days"`
	Date time.Time `json:"date"`
}

// Region partition used for transit-time lookup. Countries outside every
// set are treated as different-region from everything, including each other.
var regions = map[string][]string{
	"caribbean": {
		"jamaica", "trinidad and tobago", "barbados", "bahamas", "haiti",
		"dominican republic", "guyana", "saint lucia", "grenada",
	},
	"north_america": {
		"usa", "united states", "canada", "mexico",
	},
	"europe": {
		"united kingdom", "uk", "germany", "france", "spain", "italy",
		"netherlands", "portugal",
	},
	"asia": {
		"china", "japan", "india", "singapore", "south korea", "hong kong",
	},
}

func regionOf(country string) string {
	c := strings.ToLower(strings.TrimSpace(country))
	for region, members := range regions {
		for _, m := range members {
			if m == c {
				return region
			}
		}
	}
	return ""
}

// baseDays returns transit days before customs clearance.
func baseDays(mode string, domestic, sameRegion, express bool) int {
	switch mode {
	case "ocean":
		switch {
		case domestic:
			if express {
				return 5
			}
			return 7
		case sameRegion:
			if express {
				return 14
			}
			return 21
		default:
			if express {
				return 25
			}
			return 35
		}
	case "local":
		if express {
			return 1
		}
		return 3
	default: // air
		switch {
		case domestic:
			if express {
				return 1
			}
			return 2
		case sameRegion:
			if express {
				return 3
			}
			return 5
		default:
			if express {
				return 5
			}
			return 8
		}
	}
}

// Estimate computes an ETA for a shipment. International shipments pay a
// customs clearance penalty: 2 days express, 5 days standard.
func Estimate(serviceMode, originCountry, destCountry string, isExpress bool, start time.Time) Eta {
	origin := strings.ToLower(strings.TrimSpace(originCountry))
	dest := strings.ToLower(strings.TrimSpace(destCountry))

	domestic := origin != "" && origin == dest

	originRegion := regionOf(origin)
	destRegion := regionOf(dest)
	// An unlisted country shares a region with nothing, not even itself
	sameRegion := originRegion != "" && originRegion == destRegion

	days := baseDays(strings.ToLower(serviceMode), domestic, sameRegion, isExpress)

	if !domestic {
		if isExpress {
			days += 2
		} else {
			days += 5
		}
	}

	return Eta{
		Days: days,
		Date: start.AddDate(0, 0, days),
	}
}
