package portal

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/council/client/session"
)

func TestUserMessage(t *testing.T) {
	notYet := &session.LoadError{Kind: session.NotYetAvailable, Subject: "u1", Attempts: 10, Err: session.ErrProfileNotFound}

	tests := []struct {
		name   string
		err    error
		locale string
		want   string
	}{
		{name: "nil", err: nil, locale: "en", want: ""},
		{
			name:   "invalid credentials",
			err:    &APIError{StatusCode: http.StatusBadRequest, Message: "invalid credentials"},
			locale: "en",
			want:   "Wrong email or password.",
		},
		{
			name:   "poll closed, german",
			err:    errors.Wrap(&APIError{StatusCode: http.StatusConflict, Message: "poll is closed"}, "voting"),
			locale: "de",
			want:   "Diese Umfrage ist geschlossen.",
		},
		{
			name:   "regional locale",
			err:    &APIError{StatusCode: http.StatusConflict, Message: "event is full"},
			locale: "de-CH",
			want:   "Diese Veranstaltung ist ausgebucht.",
		},
		{
			name:   "unknown locale",
			err:    &APIError{StatusCode: http.StatusConflict, Message: "event is full"},
			locale: "fr",
			want:   "This event is full.",
		},
		{
			name:   "status fallback",
			err:    &APIError{StatusCode: http.StatusForbidden, Message: "nope"},
			locale: "en",
			want:   "You are not allowed to do this.",
		},
		{
			name:   "field errors",
			err:    &APIError{StatusCode: http.StatusBadRequest, Fields: map[string]string{"title": "this field is required"}},
			locale: "de",
			want:   "Bitte überprüfe deine Eingaben.",
		},
		{
			name:   "profile pending",
			err:    notYet,
			locale: "en",
			want:   "Your profile is still being set up. Please try again in a moment.",
		},
		{
			name:   "network",
			err:    &NetworkError{Err: errors.New("dial tcp: connection refused")},
			locale: "en",
			want:   "The server cannot be reached. Check your connection.",
		},
		{name: "generic", err: context.DeadlineExceeded, locale: "de", want: "Etwas ist schiefgelaufen. Bitte versuche es erneut."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err, tt.locale))
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "poll is closed", (&APIError{StatusCode: 409, Message: "poll is closed"}).Error())
	assert.Equal(t, "body: too long; title: this field is required", (&APIError{
		StatusCode: 400,
		Fields:     map[string]string{"title": "this field is required", "body": "too long"},
	}).Error())
	assert.Equal(t, "unauthorized", (&APIError{StatusCode: 401}).Error())
}
