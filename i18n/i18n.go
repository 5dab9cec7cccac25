// Package i18n translates the catalogtx command line messages.
//
// Message catalogs are gettext .po files embedded under
// locales/{lang}/LC_MESSAGES/catalogtx.po and read through gotext. Call Init
// once at startup; T, N and F pass the message through untranslated until
// then.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const (
	domain     = "catalogtx"
	localesDir = "locales"
)

var po *gotext.Locale

// Init loads the catalog for lang. An empty lang is taken from LANGUAGE,
// LC_ALL, LC_MESSAGES or LANG, in that order. Unknown languages fall back to
// the untranslated messages.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	po = gotext.NewLocaleFSWithPath(lang, locales, localesDir)
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// F translates format and applies args to it.
func F(format string, args ...any) string {
	return fmt.Sprintf(T(format), args...)
}

// N translates a message with plural forms for n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// Available lists the languages with an embedded catalog.
func Available() []string {
	entries, err := fs.ReadDir(locales, localesDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(locales, localesDir+"/"+e.Name()+"/LC_MESSAGES/"+domain+".po"); err == nil {
			out = append(out, e.Name())
		}
	}
	slices.Sort(out)
	return out
}

func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// "it_IT.UTF-8" -> "it_IT"
		val, _, _ = strings.Cut(val, ".")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
