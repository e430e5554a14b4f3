package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesEnglish(t *testing.T) {
	tpl, err := NewTemplates("en")
	require.NoError(t, err)
	subject, body, err := tpl.Confirmation("Ada", "opening")
	require.NoError(t, err)
	assert.Equal(t, "You're checked in to opening", subject)
	assert.Contains(t, body, "Hi Ada,")
	assert.Contains(t, body, "opening")
}

func TestTemplatesFallbacks(t *testing.T) {
	tpl, err := NewTemplates("not a locale!")
	require.NoError(t, err)
	_, body, err := tpl.Confirmation("", "lunch")
	require.NoError(t, err)
	assert.Contains(t, body, "Hi there,")

	es, err := NewTemplates("es")
	require.NoError(t, err)
	subject, _, err := es.Confirmation("Ada", "lunch")
	require.NoError(t, err)
	assert.Equal(t, "Registro confirmado en lunch", subject)
}

// sentMail is the part of a v3 mail/send body the tests look at.
type sentMail struct {
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"to"`
	} `json:"personalizations"`
	From struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"from"`
	Subject string `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func TestSendConfirmation(t *testing.T) {
	var got sentMail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := New(Config{APIURL: srv.URL + "/v3/mail/send", APIKey: "sg-key", FromAddress: "team@pitt.edu", FromName: "Pitt Challenge", Locale: "en"}, nil)
	require.NoError(t, err)
	require.NoError(t, n.SendConfirmation(context.Background(), Confirmation{Email: "ada@pitt.edu", Name: "Ada", Event: "opening"}))

	require.Len(t, got.Personalizations, 1)
	require.Len(t, got.Personalizations[0].To, 1)
	assert.Equal(t, "ada@pitt.edu", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Ada", got.Personalizations[0].To[0].Name)
	assert.Equal(t, "team@pitt.edu", got.From.Email)
	assert.Equal(t, "Pitt Challenge", got.From.Name)
	assert.Equal(t, "You're checked in to opening", got.Subject)
	require.Len(t, got.Content, 1)
	assert.Equal(t, "text/plain", got.Content[0].Type)
	assert.Contains(t, got.Content[0].Value, "Hi Ada,")
}

func TestSendConfirmationErrors(t *testing.T) {
	n, err := New(Config{Locale: "en"}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, n.SendConfirmation(context.Background(), Confirmation{Email: "a@pitt.edu"}), ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad sender", http.StatusForbidden)
	}))
	defer srv.Close()
	n, err = New(Config{APIURL: srv.URL, APIKey: "k", Locale: "en"}, nil)
	require.NoError(t, err)
	err = n.SendConfirmation(context.Background(), Confirmation{Email: "a@pitt.edu", Event: "opening"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "bad sender")
}
