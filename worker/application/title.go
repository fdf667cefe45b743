package application

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const unknownTitle = "Unknown"

// Qualifies decide se um path entra no ranking: começa com o prefixo de
// conteúdo, não é o próprio prefixo e não contém o segmento excluído.
func (o RefreshOptions) Qualifies(path string) bool {
	o = o.withDefaults()
	if !strings.HasPrefix(path, o.ContentPrefix) || path == o.ContentPrefix {
		return false
	}
	return !strings.Contains(path, o.ExcludedSegment)
}

// DeriveTitle gera o título a partir do path: remove o prefixo, junta
// separadores repetidos e troca hífens por espaços.
// Ex.: "/blog/my-post" -> "my post".
func DeriveTitle(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if decoded, err := url.PathUnescape(rest); err == nil {
		rest = decoded
	}

	segments := strings.FieldsFunc(rest, func(r rune) bool { return r == '/' })
	rest = strings.Join(segments, "/")
	if rest == "" {
		return unknownTitle
	}

	return norm.NFC.String(strings.ReplaceAll(rest, "-", " "))
}
