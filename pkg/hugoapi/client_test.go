package hugoapi_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/hugoapi"
)

func TestCreateSessionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"code":"backend_down","message":"engine unavailable"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	client := hugoapi.NewClient(srv.URL)
	_, err := client.CreateSession(context.Background(), hugoapi.SessionParams{TechniqueID: "1.1"})

	var createErr *hugoapi.SessionCreateError
	if !errors.As(err, &createErr) {
		t.Fatalf("err = %T, want *SessionCreateError", err)
	}
	var apiErr *hugoapi.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("cause = %v, want *APIError", createErr.Cause)
	}
	if apiErr.HTTPStatus != http.StatusBadGateway || apiErr.Code != "backend_down" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestMediaCredentialBootstrap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/api/v2/media/audio-token":
			fmt.Fprint(w, `{"url":"wss://media.example.com","token":"room-token"}`)
		case "/api/v2/media/avatar-token":
			fmt.Fprint(w, `{"token":"avatar-token","avatarId":"hugo-01"}`)
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	client := hugoapi.NewClient(srv.URL)

	room, err := client.AudioCredentials(context.Background(), "2.3")
	if err != nil {
		t.Fatalf("AudioCredentials: %v", err)
	}
	if room.URL != "wss://media.example.com" || room.Token != "room-token" {
		t.Fatalf("room = %+v", room)
	}

	av, err := client.AvatarCredentials(context.Background())
	if err != nil {
		t.Fatalf("AvatarCredentials: %v", err)
	}
	if av.Token != "avatar-token" || av.AvatarID != "hugo-01" {
		t.Fatalf("avatar = %+v", av)
	}
}

func TestEvaluateIsOpaque(t *testing.T) {
	payload := `{"overallScore":87,"vendorSpecific":{"nested":true}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/api/v2/session/s1/evaluate" {
			http.NotFound(w, req)
			return
		}
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	client := hugoapi.NewClient(srv.URL)
	raw, err := client.Evaluate(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if string(raw) != payload {
		t.Fatalf("raw = %s, want untouched payload", raw)
	}
}

func TestTechniquesLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `[{"nummer":"2.3","naam":"Terugkoppelen","fase":"2"}]`)
	}))
	defer srv.Close()

	client := hugoapi.NewClient(srv.URL)
	techs, err := client.Techniques(context.Background())
	if err != nil {
		t.Fatalf("Techniques: %v", err)
	}
	if len(techs) != 1 || techs[0].Number != "2.3" || techs[0].Name != "Terugkoppelen" {
		t.Fatalf("techs = %+v", techs)
	}
}
