package utils

import (
	"strings"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ptPrinter = message.NewPrinter(language.BrazilianPortuguese)

// TaskLabel is the caption of a task's complete button, e.g. "Concluir (+1.000 XP)".
func TaskLabel(xp int64) string {
	return ptPrinter.Sprintf("Concluir (+%d XP)", xp)
}

// SortKey folds accents and case so "Águas" sorts next to "aguas".
func SortKey(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}
