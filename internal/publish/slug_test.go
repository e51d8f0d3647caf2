package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	for name, want := range map[string]string{
		"🌹warehouse🌹":    "warehouse",
		"🌹t主仓库🌹":         "t",
		"本地线路":           "source",
		"":               "source",
		"线路 A/B":         "a-b",
		"Multi Route-01": "multi-route-01",
		"-- trimmed --":  "trimmed",
		"Ｆｕｌｌ①":          "full1",
	} {
		assert.Equal(t, want, Slug(name), "slug of %q", name)
	}
}
