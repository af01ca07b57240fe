package ayrelink

import (
	"fmt"
	"sort"
	"strings"
)

// Profile describes the fixed characteristics of one preamplifier model.
type Profile struct {
	Model        string
	Name         string
	VolumeType   string
	VolumeMin    int
	VolumeMax    int
	VolumeStep   int
	VolumeStepDB float64
}

var profiles = map[string]Profile{
	"KX-R": {
		Model:        "KX-R",
		Name:         "Ayre KX-R",
		VolumeType:   "number",
		VolumeMin:    0,
		VolumeMax:    60,
		VolumeStep:   1,
		VolumeStepDB: 1,
	},
	"KX-5": {
		Model:        "KX-5",
		Name:         "Ayre KX-5",
		VolumeType:   "number",
		VolumeMin:    0,
		VolumeMax:    46,
		VolumeStep:   1,
		VolumeStepDB: 1.5,
	},
}

// LookupProfile resolves a model identifier. The twenty flag selects the
// "Twenty" revision of the model, which only changes the display name.
func LookupProfile(model string, twenty bool) (Profile, error) {
	p, ok := profiles[strings.ToUpper(strings.TrimSpace(model))]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnsupported, model)
	}

	if twenty {
		p.Name += " Twenty"
	}

	return p, nil
}

// Models lists the supported model identifiers.
func Models() []string {
	models := make([]string, 0, len(profiles))
	for m := range profiles {
		models = append(models, m)
	}
	sort.Strings(models)

	return models
}

// ClampVolume limits v to the profile's volume range.
func (p Profile) ClampVolume(v int) int {
	if v > p.VolumeMax {
		return p.VolumeMax
	}
	if v < p.VolumeMin {
		return p.VolumeMin
	}

	return v
}

// Describe renders the profile together with the port it is attached to.
func (p Profile) Describe(port string) string {
	return fmt.Sprintf("%s configured with vol range %d-%d, step size %d (%g dB) on %s",
		p.Name, p.VolumeMin, p.VolumeMax, p.VolumeStep, float64(p.VolumeStep)*p.VolumeStepDB, port)
}
