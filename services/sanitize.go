package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// comentarioPolicy strips all markup from user-entered free text
// (comentarios, descripciones) before it is persisted or embedded in
// notification emails.
var comentarioPolicy = bluemonday.StrictPolicy()

// SanitizarTexto removes any HTML from user-entered free text
func SanitizarTexto(texto string) string {
	return strings.TrimSpace(comentarioPolicy.Sanitize(texto))
}
