package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleParserCanonicalList(t *testing.T) {
	p := NewRuleParser()
	items, unresolved := p.Parse(context.Background(), "Chicken breast 150g; Rice 180g; Salad 120g")

	require.Len(t, items, 3)
	assert.Empty(t, unresolved)
	assert.Equal(t, Item{Name: "Chicken breast", Grams: 150}, items[0])
	assert.Equal(t, Item{Name: "Rice", Grams: 180}, items[1])
	assert.Equal(t, Item{Name: "Salad", Grams: 120}, items[2])
}

func TestRuleParserRussianUnits(t *testing.T) {
	p := NewRuleParser()
	items, unresolved := p.Parse(context.Background(), "Кур. грудка 150 г; Рис 180 гр; Салат 120 грамм")

	require.Len(t, items, 3)
	assert.Empty(t, unresolved)
	assert.Equal(t, "Кур. грудка", items[0].Name)
	assert.Equal(t, 150, items[0].Grams)
	assert.Equal(t, 180, items[1].Grams)
	assert.Equal(t, 120, items[2].Grams)
}

func TestRuleParserDelimiters(t *testing.T) {
	p := NewRuleParser()
	for _, text := range []string{
		"Гречка 100; Творог 200",
		"Гречка 100, Творог 200",
		"Гречка 100\nТворог 200",
	} {
		items, unresolved := p.Parse(context.Background(), text)
		require.Len(t, items, 2, "input %q", text)
		assert.Empty(t, unresolved)
		assert.Equal(t, "Гречка", items[0].Name)
		assert.Equal(t, "Творог", items[1].Name)
	}
}

func TestRuleParserDefaultsToHundredGrams(t *testing.T) {
	p := NewRuleParser()
	items, unresolved := p.Parse(context.Background(), "Салат; Рис 180 г")

	require.Len(t, items, 2)
	assert.Empty(t, unresolved)
	assert.Equal(t, Item{Name: "Салат", Grams: 100, Assumed: true}, items[0])
	assert.False(t, items[1].Assumed)
}

func TestRuleParserReportsUnresolvedIndividually(t *testing.T) {
	p := NewRuleParser()
	items, unresolved := p.Parse(context.Background(), "Рис 180 г; 12345; Творог 200")

	require.Len(t, items, 2)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "12345", unresolved[0])
}

func TestRuleParserEmptyInput(t *testing.T) {
	p := NewRuleParser()
	items, unresolved := p.Parse(context.Background(), "  ;; \n ")
	assert.Empty(t, items)
	assert.Empty(t, unresolved)
}
