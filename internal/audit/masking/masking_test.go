package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****.com", MaskSecret("ops@example.com"))
}

func TestMaskSensitive(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"role":       "manager",
		"user_email": "ops@example.com",
		"nested": map[string]any{
			"password": "hunter22",
			"count":    3,
		},
	})

	assert.Equal(t, "manager", out["role"])
	assert.Equal(t, "****.com", out["user_email"])
	nested := out["nested"].(map[string]any)
	assert.Equal(t, "****er22", nested["password"])
	assert.Equal(t, 3, nested["count"])
}
