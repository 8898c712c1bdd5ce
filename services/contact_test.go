package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactRequest() dto.ContactRequest {
	return dto.ContactRequest{
		Name:    " Ana ",
		Email:   "ana@example.com",
		Subject: "Hello",
		Message: "The river story is great",
	}
}

func TestContactSubmitRelaysMessage(t *testing.T) {
	var got map[string]string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer relay.Close()

	svc := NewContactService(relay.URL)
	require.NoError(t, svc.Submit(contactRequest()))
	assert.Equal(t, "Ana", got["name"])
	assert.Equal(t, "The river story is great", got["message"])
}

func TestContactSubmitRelayRejects(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer relay.Close()

	err := NewContactService(relay.URL).Submit(contactRequest())
	assertStatus(t, err, http.StatusBadGateway)
}

func TestContactSubmitWithoutRelay(t *testing.T) {
	err := NewContactService("").Submit(contactRequest())
	assertStatus(t, err, http.StatusServiceUnavailable)
}
