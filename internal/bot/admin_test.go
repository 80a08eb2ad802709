package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrantArgs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantID   int64
		wantDays int
		wantErr  bool
	}{
		{name: "id with days", input: "123456789 10", wantID: 123456789, wantDays: 10},
		{name: "id only uses default", input: "123456789", wantID: 123456789, wantDays: 30},
		{name: "extra whitespace", input: "  42   7 ", wantID: 42, wantDays: 7},
		{name: "empty", input: "", wantErr: true},
		{name: "non numeric id", input: "abc 10", wantErr: true},
		{name: "non numeric days", input: "42 ten", wantErr: true},
		{name: "zero days", input: "42 0", wantErr: true},
		{name: "too many fields", input: "1 2 3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, days, err := parseGrantArgs(tt.input, 30)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantDays, days)
		})
	}
}

func TestMenuButtonsExcludeQuestionnaireAnswers(t *testing.T) {
	// Questionnaire answers must be treated as flow input, not as menu
	// shortcuts that would clear the flow mid-questionnaire.
	for _, label := range []string{btnMale, btnFemale, btnActivityLow, btnGoalLose} {
		assert.False(t, menuButtons[label], "label %q must not be a menu button", label)
	}
	for _, label := range []string{btnBuyPremium, btnFoodList, btnWeekMenu, btnRecipeQuery} {
		assert.True(t, menuButtons[label], "label %q must be a menu button", label)
	}
}

func TestProfileFromScratch(t *testing.T) {
	profile := profileFromScratch(map[string]string{
		"sex":      "Мужчина",
		"height":   "180",
		"weight":   "80",
		"age":      "30",
		"activity": "Средняя",
	})
	assert.Equal(t, "Мужчина", profile.Sex)
	assert.Equal(t, 180, profile.Height)
	assert.Equal(t, 80, profile.Weight)
	assert.Equal(t, 30, profile.Age)
	assert.Equal(t, "Средняя", profile.Activity)
	assert.False(t, profile.Complete(), "goal is not part of scratch")
}
