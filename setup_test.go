package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
)

func TestValidateTelegramToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/botgood/getMe":
			w.Write([]byte(`{"ok":true,"result":{"id":1}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		}
	}))
	defer ts.Close()

	client := resty.New()
	assert.NoError(t, validateTelegramToken(client, ts.URL, "good"))
	assert.EqualError(t, validateTelegramToken(client, ts.URL, "bad"), "Unauthorized")
}

func TestValidateGeminiKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("key") {
		case "good":
			w.Write([]byte(`{"models":[]}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"API key not valid."}}`))
		}
	}))
	defer ts.Close()

	client := resty.New()
	assert.NoError(t, validateGeminiKey(client, ts.URL, "good"))
	assert.EqualError(t, validateGeminiKey(client, ts.URL, "bad"), "API key not valid.")
	assert.EqualError(t, validateGeminiKey(client, ts.URL, "broken"), "unexpected response (HTTP 500)")
}
