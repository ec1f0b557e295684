// Package catalog holds the pre-authored hunt templates and turns the one
// nearest to a player into a concrete hunt payload.
package catalog

import (
	"fmt"
	"math"
	"time"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

// Stop offsets are drawn uniformly from this radial range, in km.
const (
	MinOffsetKm = 0.2
	MaxOffsetKm = 0.5
)

const kmPerDegreeLat = 111.32

// Rand is the randomness needed for stop placement. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	Float64() float64
}

type StopTemplate struct {
	Title       string
	Description string
	Address     string
	Challenge   ecoquest.Challenge
	Points      int
}

type Template struct {
	Name        string
	Theme       ecoquest.Theme
	Title       string
	Description string
	Center      ecoquest.Location
	Stops       []StopTemplate
}

type Catalog struct {
	templates []Template
}

func New(templates []Template) *Catalog {
	return &Catalog{templates: templates}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(builtin)
}

// Select returns the template for theme whose center is nearest to
// (lat, lng). Ties keep the earlier template. ok is false when the theme has
// no templates.
func (c *Catalog) Select(theme ecoquest.Theme, lat, lng float64) (Template, bool) {
	var (
		best  Template
		bestD = math.Inf(1)
		found bool
	)
	for _, t := range c.templates {
		if t.Theme != theme {
			continue
		}
		d := ecoquest.DistanceKm(lat, lng, t.Center.Lat, t.Center.Lng)
		if d < bestD {
			best, bestD, found = t, d, true
		}
	}
	return best, found
}

// ThemeInfo summarizes one theme for clients.
type ThemeInfo struct {
	Theme     ecoquest.Theme `json:"theme"`
	Title     string         `json:"title"`
	Templates []string       `json:"templates"`
}

var themeTitles = map[ecoquest.Theme]string{
	ecoquest.ThemeUrbanNature:         "Urban Nature",
	ecoquest.ThemeSustainableShopping: "Sustainable Shopping",
	ecoquest.ThemePollinatorHunt:      "Pollinator Hunt",
	ecoquest.ThemeZeroWastePicnic:     "Zero-Waste Picnic",
}

func (c *Catalog) Themes() []ThemeInfo {
	out := make([]ThemeInfo, 0, len(ecoquest.Themes))
	for _, th := range ecoquest.Themes {
		info := ThemeInfo{Theme: th, Title: themeTitles[th], Templates: []string{}}
		for _, t := range c.templates {
			if t.Theme == th {
				info.Templates = append(info.Templates, t.Name)
			}
		}
		out = append(out, info)
	}
	return out
}

// Build places the template's stops on a ring around its center. Stop i of
// N sits at angle i/N * 2π, at a random distance in [MinOffsetKm,
// MaxOffsetKm).
func (t Template) Build(rng Rand, now time.Time) ecoquest.HuntPayload {
	n := len(t.Stops)
	stops := make([]ecoquest.Stop, n)
	for i, st := range t.Stops {
		theta := float64(i) / float64(n) * 2 * math.Pi
		r := MinOffsetKm + rng.Float64()*(MaxOffsetKm-MinOffsetKm)

		addr := st.Address
		if addr == "" {
			addr = t.Center.Address
		}
		loc := Offset(t.Center, r, theta)
		loc.Address = addr

		stops[i] = ecoquest.Stop{
			ID:          fmt.Sprintf("stop_%d_%d", now.UnixMilli(), i),
			Title:       st.Title,
			Description: st.Description,
			Location:    loc,
			Address:     addr,
			Challenge:   st.Challenge,
			Points:      st.Points,
		}
	}
	return ecoquest.HuntPayload{
		Title:       t.Title,
		Description: t.Description,
		Location:    t.Center,
		Stops:       stops,
	}
}

// Offset moves center by distKm along bearing theta (radians, 0 = north)
// using a flat-earth approximation, which is accurate at sub-kilometre scale.
func Offset(center ecoquest.Location, distKm, theta float64) ecoquest.Location {
	dLat := distKm * math.Cos(theta) / kmPerDegreeLat
	dLng := distKm * math.Sin(theta) / (kmPerDegreeLat * math.Cos(center.Lat*math.Pi/180))
	return ecoquest.Location{Lat: center.Lat + dLat, Lng: center.Lng + dLng}
}
