package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	body := RenderTemplate("Hi {name}, your {plan} subscription is {status}.", "ana", "pro", "active")
	assert.Equal(t, "Hi ana, your pro subscription is active.", body)
}

func TestRenderTemplateUnknownPlaceholderPassesThrough(t *testing.T) {
	body := RenderTemplate("Hello {name}, code {code}", "ana", "pro", "active")
	assert.Equal(t, "Hello ana, code {code}", body)
}

func TestRenderTemplateRepeatedPlaceholders(t *testing.T) {
	body := RenderTemplate("{name} {name}", "ana", "", "")
	assert.Equal(t, "ana ana", body)
}

func TestNameFromContactKey(t *testing.T) {
	assert.Equal(t, "ana", NameFromContactKey("ana@example.com"))
	assert.Equal(t, "no-at-sign", NameFromContactKey("no-at-sign"))
	assert.Equal(t, "@leading", NameFromContactKey("@leading"))
}
