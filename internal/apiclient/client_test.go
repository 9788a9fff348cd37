package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ygodeck/internal/catalog"
	"ygodeck/internal/deck"
	"ygodeck/internal/search"
)

func TestClient_LoginThenAuthorizedCalls(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			raw, _ := io.ReadAll(r.Body)
			var body map[string]string
			require.NoError(t, sonic.Unmarshal(raw, &body))
			assert.Equal(t, "yugi", body["identifier"])
			_, _ = w.Write([]byte(`{"token":"access-1","refreshToken":"r","userId":7,"username":"yugi"}`))
		case "/api/decks":
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"decks":[{"id":3,"name":"Dark Magician","mainCount":40,"extraCount":2}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", nil)
	session, err := c.Login(context.Background(), "yugi", "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), session.UserID)

	decks, err := c.ListDecks(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer access-1", gotAuth)
	require.Len(t, decks, 1)
	assert.Equal(t, 40, decks[0].MainCount)
}

func TestClient_SearchCardsQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id":46986414,"name":"Dark Magician","type":"Normal Monster","atk":2500,"def":2100,"banStatus":"Unlimited","isExtraDeck":false}]`))
	}))
	defer srv.Close()

	cards, err := New(srv.URL, nil).SearchCards(context.Background(), catalog.Filter{
		Name: " Dark ", Atk: "desc", Page: 2, IDs: []int{1, 2},
	})

	require.NoError(t, err)
	assert.Equal(t, "atk=desc&fname=Dark&id=1%2C2&page=2", gotQuery)
	require.Len(t, cards, 1)
	assert.Equal(t, 2500, *cards[0].Atk)
	assert.Equal(t, deck.Unlimited, cards[0].BanStatus)
}

func TestClient_ErrorResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"card catalog unavailable","code":"UPSTREAM_UNAVAILABLE"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).SearchCards(context.Background(), catalog.Filter{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", apiErr.Body.Code)
	assert.Equal(t, search.CategoryServer, search.Categorize(err).Category)
}

func TestClient_CreateDeckSendsSubmission(t *testing.T) {
	var got deck.Submission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(raw, &got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"deck":{"id":9,"name":"Exodia","mainDeck":[{"id":33396948,"count":1}],"extraDeck":[]}}`))
	}))
	defer srv.Close()

	d, err := New(srv.URL, nil).CreateDeck(context.Background(), deck.Submission{
		Name: "Exodia",
		Main: []deck.Entry{{ID: 33396948, Count: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, uint(9), d.ID)
	assert.Equal(t, "Exodia", got.Name)
	assert.Equal(t, []deck.Entry{{ID: 33396948, Count: 1}}, got.Main)
}
