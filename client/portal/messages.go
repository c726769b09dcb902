package portal

import (
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"

	"github.com/trezcool/council/client/session"
	"github.com/trezcool/council/core"
)

// userMessage is shown to users when the error text contains one of its hints.
type userMessage struct {
	key   string
	hints []string
	en    string
	de    string
}

// Checked in order, the first match wins.
var userMessages = []userMessage{
	{
		key:   "invalid_credentials",
		hints: []string{"invalid credentials"},
		en:    "Wrong email or password.",
		de:    "E-Mail-Adresse oder Passwort ist falsch.",
	},
	{
		key:   "deactivated",
		hints: []string{"deactivated"},
		en:    "Your account has been deactivated.",
		de:    "Dein Konto wurde deaktiviert.",
	},
	{
		key:   "session_expired",
		hints: []string{"jwt", "not authenticated", "refresh has expired", "not signed in"},
		en:    "Your session has expired. Please sign in again.",
		de:    "Deine Sitzung ist abgelaufen. Bitte melde dich erneut an.",
	},
	{
		key:   "poll_closed",
		hints: []string{"poll is closed"},
		en:    "This poll is closed.",
		de:    "Diese Umfrage ist geschlossen.",
	},
	{
		key:   "event_closed",
		hints: []string{"closed for applications"},
		en:    "Applications for this event are closed.",
		de:    "Die Anmeldung für diese Veranstaltung ist geschlossen.",
	},
	{
		key:   "event_full",
		hints: []string{"event is full"},
		en:    "This event is full.",
		de:    "Diese Veranstaltung ist ausgebucht.",
	},
	{
		key:   "already_applied",
		hints: []string{"already applied"},
		en:    "You already applied to this event.",
		de:    "Du hast dich bereits für diese Veranstaltung angemeldet.",
	},
	{
		key:   "email_taken",
		hints: []string{"already exists"},
		en:    "An account with this email already exists.",
		de:    "Mit dieser E-Mail-Adresse existiert bereits ein Konto.",
	},
	{
		key:   "forbidden",
		hints: []string{"permission denied", "only admins", "only the author", "not enough rights", "cannot change your own role"},
		en:    "You are not allowed to do this.",
		de:    "Dazu bist du nicht berechtigt.",
	},
	{
		key:   "not_found",
		hints: []string{"not found"},
		en:    "This item does not exist anymore.",
		de:    "Dieser Eintrag existiert nicht mehr.",
	},
	{
		key:   "invalid_input",
		hints: []string{"this field", "must be", "invalid"},
		en:    "Please check your input.",
		de:    "Bitte überprüfe deine Eingaben.",
	},
	{
		key:   "network",
		hints: []string{"network error", "connection refused", "timeout"},
		en:    "The server cannot be reached. Check your connection.",
		de:    "Der Server ist nicht erreichbar. Prüfe deine Verbindung.",
	},
}

var (
	profilePendingMsg = userMessage{
		key: "profile_pending",
		en:  "Your profile is still being set up. Please try again in a moment.",
		de:  "Dein Profil wird noch eingerichtet. Bitte versuche es gleich noch einmal.",
	}
	genericMsg = userMessage{
		key: "generic",
		en:  "Something went wrong. Please try again.",
		de:  "Etwas ist schiefgelaufen. Bitte versuche es erneut.",
	}

	messages = newMessageTranslator()
)

func newMessageTranslator() *ut.UniversalTranslator {
	uni := core.NewTranslator()
	enT, _ := uni.GetTranslator("en")
	deT, _ := uni.GetTranslator("de")
	for _, m := range append(userMessages, profilePendingMsg, genericMsg) {
		_ = enT.Add(m.key, m.en, false)
		_ = deT.Add(m.key, m.de, false)
	}
	return uni
}

// UserMessage maps err to a short message for users, in locale ("en", "de", "de-CH", ...).
// Unknown locales fall back to english.
func UserMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	trans, _ := messages.GetTranslator(baseLocale(locale))
	msg, tErr := trans.T(messageKey(err))
	if tErr != nil {
		return genericMsg.en
	}
	return msg
}

func baseLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return locale
}

func messageKey(err error) string {
	if session.IsNotYetAvailable(err) {
		return profilePendingMsg.key
	}

	text := strings.ToLower(err.Error())
	for _, m := range userMessages {
		for _, hint := range m.hints {
			if strings.Contains(text, hint) {
				return m.key
			}
		}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return "session_expired"
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusBadRequest:
			return "invalid_input"
		}
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "network"
	}
	return genericMsg.key
}
