package estimate

import (
	_ "embed"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sells-group/adscout/internal/model"
)

//go:embed templates.yaml
var templatesYAML []byte

// Geo-qualified keyword adjustments. Geo-qualified searches are a
// minority fraction of base volume, growing slightly with market
// competitiveness; geo intent commands a CPC premium.
const (
	geoVolumeBase  = 0.20
	geoVolumeSlope = 0.15
	geoCPCPremium  = 1.15
)

// nearMeVolumeFraction scales the "near me" base variant relative to the
// head keyword.
const nearMeVolumeFraction = 0.35

// serviceTemplate is a known CPC/volume range for one service.
type serviceTemplate struct {
	CPCLow      float64
	CPCHigh     float64
	VolumeLow   int
	VolumeHigh  int
	Competition model.CompetitionTier
}

type yamlRange struct {
	CPC         []float64 `yaml:"cpc"`
	Volume      []int     `yaml:"volume"`
	Competition string    `yaml:"competition"`
}

type yamlTemplates struct {
	Services map[string]yamlRange `yaml:"services"`
	Generic  yamlRange            `yaml:"generic"`
}

// Interpolator produces deterministic keyword estimates for a service at
// a given market factor. It performs no I/O.
type Interpolator struct {
	templates map[string]serviceTemplate
	generic   serviceTemplate
}

// NewInterpolator builds an Interpolator from the embedded templates.
func NewInterpolator() (*Interpolator, error) {
	var raw yamlTemplates
	if err := yaml.Unmarshal(templatesYAML, &raw); err != nil {
		return nil, fmt.Errorf("estimate: parse templates: %w", err)
	}

	templates := make(map[string]serviceTemplate, len(raw.Services))
	for name, r := range raw.Services {
		t, err := toTemplate(name, r)
		if err != nil {
			return nil, err
		}
		templates[name] = t
	}

	generic, err := toTemplate("generic", raw.Generic)
	if err != nil {
		return nil, err
	}

	return &Interpolator{templates: templates, generic: generic}, nil
}

func toTemplate(name string, r yamlRange) (serviceTemplate, error) {
	if len(r.CPC) != 2 || len(r.Volume) != 2 {
		return serviceTemplate{}, fmt.Errorf("estimate: template %q needs [low, high] cpc and volume", name)
	}
	tier := model.CompetitionTier(r.Competition)
	if tier == "" {
		tier = model.CompetitionMedium
	}
	return serviceTemplate{
		CPCLow:      r.CPC[0],
		CPCHigh:     r.CPC[1],
		VolumeLow:   r.Volume[0],
		VolumeHigh:  r.Volume[1],
		Competition: tier,
	}, nil
}

// templateFor looks up a service's range, falling back to the generic
// range with a fixed medium tier for unknown services.
func (i *Interpolator) templateFor(service string) serviceTemplate {
	key := strings.ToLower(strings.TrimSpace(service))
	if t, ok := i.templates[key]; ok {
		return t
	}
	g := i.generic
	g.Competition = model.CompetitionMedium
	return g
}

// Keywords interpolates the service's ranges at factor f and expands base
// and city-qualified variants. Pure: identical (service, cities, f)
// always produce identical output.
func (i *Interpolator) Keywords(service string, cities []string, f float64) []model.KeywordDatum {
	f = clamp01(f)
	t := i.templateFor(service)

	baseCPC := roundCents(lerp(t.CPCLow, t.CPCHigh, f))
	baseVolume := int(math.Round(lerp(float64(t.VolumeLow), float64(t.VolumeHigh), f)))

	term := strings.ToLower(strings.TrimSpace(service))
	out := []model.KeywordDatum{
		{
			Keyword:       term,
			MonthlyVolume: baseVolume,
			AvgCPC:        baseCPC,
			Competition:   t.Competition,
			Service:       service,
		},
		{
			Keyword:       term + " near me",
			MonthlyVolume: int(math.Round(float64(baseVolume) * nearMeVolumeFraction)),
			AvgCPC:        baseCPC,
			Competition:   t.Competition,
			Service:       service,
		},
	}

	geoVolume := int(math.Round(float64(baseVolume) * (geoVolumeBase + f*geoVolumeSlope)))
	geoCPC := roundCents(baseCPC * geoCPCPremium)
	for _, city := range cities {
		c := strings.ToLower(strings.TrimSpace(city))
		if c == "" {
			continue
		}
		out = append(out, model.KeywordDatum{
			Keyword:       term + " " + c,
			MonthlyVolume: geoVolume,
			AvgCPC:        geoCPC,
			Competition:   t.Competition,
			Service:       service,
			City:          city,
		})
	}

	return out
}

func lerp(lo, hi, f float64) float64 {
	return lo + (hi-lo)*f
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
