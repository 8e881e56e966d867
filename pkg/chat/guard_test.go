package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasUnwantedPrefix(t *testing.T) {
	assert.True(t, hasUnwantedPrefix("As an AI, I cannot help with that."))
	assert.True(t, hasUnwantedPrefix("Извините, но я не могу это сделать."))
	assert.False(t, hasUnwantedPrefix("Here is the answer you asked for."))
}

func TestRuLanguageMismatch(t *testing.T) {
	assert.True(t, ruLanguageMismatch("как дела?", "Everything is fine."))
	assert.False(t, ruLanguageMismatch("как дела?", "Всё хорошо."))
	assert.False(t, ruLanguageMismatch("how are you?", "I'm fine."))
}

func TestOffTopic_FlagsLowOverlap(t *testing.T) {
	assert.True(t, offTopic("объясни принцип работы квантового компьютера подробно", "Сегодня хорошая погода на улице."))
}

func TestOffTopic_AllowsGoodOverlap(t *testing.T) {
	assert.False(t, offTopic("объясни принцип работы квантового компьютера", "Квантовый компьютер работает по принципу кубитов и суперпозиции."))
}

func TestOffTopic_ShortQueryNeverFlagged(t *testing.T) {
	assert.False(t, offTopic("привет", "Здравствуйте! Чем могу помочь?"))
}

func TestFirstPersonNarrative(t *testing.T) {
	assert.True(t, firstPersonNarrative("как починить кран", "Однажды я пошёл чинить кран и понял главное..."))
	assert.False(t, firstPersonNarrative("расскажи про свой день, я сегодня тоже пошёл гулять", "Однажды я пошёл гулять в парк."))
}

func TestTruncated(t *testing.T) {
	assert.True(t, truncated("Вот что нужно сделать:"))
	assert.True(t, truncated("Используй такой код: ```go\nfmt.Println(1)"))
	assert.False(t, truncated("Вот полный ответ на твой вопрос."))
}

func TestLooksUncertain(t *testing.T) {
	assert.True(t, looksUncertain(""))
	assert.True(t, looksUncertain("Я не уверен в точном ответе."))
	assert.False(t, looksUncertain("Ответ: 42."))
}

func TestLooksInformational(t *testing.T) {
	assert.True(t, looksInformational("почему небо синее?"))
	assert.True(t, looksInformational("what is the capital of France"))
	assert.False(t, looksInformational("спасибо"))
}
