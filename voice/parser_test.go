package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, []Intent{{Kind: NavigateIntent, Target: "appointments"}}, Parse("go to appointments"))
	assert.Equal(t, []Intent{{Kind: NavigateIntent, Target: "calendar"}}, Parse("Navigate to Calendar "))
	assert.Equal(t, []Intent{{Kind: ActivateIntent, Target: "cancel"}}, Parse("please click cancel"))
	assert.Equal(t, []Intent{{Kind: ActivateIntent, Target: "save"}}, Parse("press save"))
	assert.Empty(t, Parse("go to"))
	assert.Empty(t, Parse("click   "))
	assert.Empty(t, Parse("hello there"))

	// Earliest phrase wins
	assert.Equal(t, []Intent{{Kind: NavigateIntent, Target: "billing navigate to profile"}}, Parse("navigate to billing navigate to profile"))
	assert.Equal(t, []Intent{{Kind: NavigateIntent, Target: "profile go to billing"}}, Parse("navigate to profile go to billing"))

	// Both intents
	assert.Equal(t, []Intent{
		{Kind: NavigateIntent, Target: "profile and click edit"},
		{Kind: ActivateIntent, Target: "edit"},
	}, Parse("go to profile and click edit"))
}
