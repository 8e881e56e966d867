package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanAnswerMarkdown_RemovesNoiseLinesAndDuplicates(t *testing.T) {
	markdown := "Краткий итог: Ответ найден.\n" +
		"####!!!!!####\n" +
		"你好你好你好你好你好\n" +
		"1. Факт A.\n" +
		"1. Факт A.\n" +
		"2. Факт B.\n"

	cleaned := cleanAnswerMarkdown(markdown, "кто такой кен канеки")

	assert.Contains(t, cleaned, "Краткий итог: Ответ найден.")
	assert.NotContains(t, cleaned, "####")
	assert.NotContains(t, cleaned, "你好")
	assert.Equal(t, 1, countOccurrences(cleaned, "1. Факт A."))
	assert.Contains(t, cleaned, "2. Факт B.")
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}

func TestFormatSourcesBlock_DedupsAndLimits(t *testing.T) {
	sources := []SourceRecord{
		{URL: "https://a.example", Title: "A"},
		{URL: "https://a.example", Title: "A dup"},
		{URL: "https://b.example", Title: "B"},
	}
	block := formatSourcesBlock(sources, 5)
	assert.Contains(t, block, "A - https://a.example")
	assert.Contains(t, block, "B - https://b.example")
	assert.Equal(t, 1, countOccurrences(block, "https://a.example"))
}
