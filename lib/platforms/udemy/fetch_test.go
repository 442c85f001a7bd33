package udemy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"

	"coursemetrics/lib/pagestore"

	"github.com/stretchr/testify/require"
)

// fakeAPI serves a fixed number of cursor-paginated pages, one record per
// page, and counts how many requests actually hit the network.
type fakeAPI struct {
	srv        *httptest.Server
	requests   atomic.Int32
	totalPages int
}

func newFakeAPI(totalPages int) *fakeAPI {
	api := &fakeAPI{totalPages: totalPages}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.requests.Add(1)
		n := 1
		if p := r.URL.Query().Get("page"); p != "" {
			n, _ = strconv.Atoi(p)
		}
		fmt.Fprint(w, api.page(n))
	}))
	return api
}

func (api *fakeAPI) page(n int) string {
	next := "null"
	if n < api.totalPages {
		next = fmt.Sprintf("%q", fmt.Sprintf("%s/courses/?page=%d&page_size=2", api.srv.URL, n+1))
	}
	return fmt.Sprintf(`{"count":%d,"next":%s,"results":[{"id":%d}]}`, api.totalPages, next, n)
}

func newTestClient(t *testing.T, api *fakeAPI) (*Client, pagestore.Store) {
	store := pagestore.NewStore(t.TempDir())
	client := NewClient(ClientOptions{
		BaseUrl:      api.srv.URL + "/",
		ClientID:     "client",
		ClientSecret: "secret",
		Store:        store,
		NoThrottle:   true,
	})
	return client, store
}

func TestFetchWalksAllPages(t *testing.T) {
	api := newFakeAPI(3)
	defer api.srv.Close()
	client, store := newTestClient(t, api)

	records, err := client.FetchDataset(context.Background(), ResourceCourses)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.EqualValues(t, 3, api.requests.Load())

	data, err := os.ReadFile(store.DatasetPath("course"))
	require.NoError(t, err)
	var out []map[string]int
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, []map[string]int{{"id": 1}, {"id": 2}, {"id": 3}}, out)
}

func TestFetchResumesFromCache(t *testing.T) {
	api := newFakeAPI(3)
	defer api.srv.Close()
	client, store := newTestClient(t, api)

	// pages 1 and 2 reached the committed state in a previous run
	require.NoError(t, store.Store("course", 1, []byte(api.page(1))))
	require.NoError(t, store.Store("course", 2, []byte(api.page(2))))

	records, err := client.FetchDataset(context.Background(), ResourceCourses)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.EqualValues(t, 1, api.requests.Load())
}

func TestFetchEmptyFirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":0,"next":null,"results":[]}`)
	}))
	defer srv.Close()

	store := pagestore.NewStore(t.TempDir())
	client := NewClient(ClientOptions{BaseUrl: srv.URL + "/", Store: store, NoThrottle: true})

	records, err := client.FetchDataset(context.Background(), ResourceCourses)
	require.NoError(t, err)
	require.Empty(t, records)

	data, err := os.ReadFile(store.DatasetPath("course"))
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(data))
}

func TestFetchMissingResultsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":0}`)
	}))
	defer srv.Close()

	store := pagestore.NewStore(t.TempDir())
	client := NewClient(ClientOptions{BaseUrl: srv.URL + "/", Store: store, NoThrottle: true})

	records, err := client.FetchDataset(context.Background(), ResourceCourses)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestFetchErrorWritesNoDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := pagestore.NewStore(t.TempDir())
	client := NewClient(ClientOptions{BaseUrl: srv.URL + "/", Store: store, NoThrottle: true})

	_, err := client.FetchDataset(context.Background(), ResourceCourses)
	require.ErrorIs(t, err, ErrRemoteFetch)

	_, err = os.Stat(store.DatasetPath("course"))
	require.True(t, os.IsNotExist(err))
}

func TestFetchCorruptCachedPage(t *testing.T) {
	api := newFakeAPI(1)
	defer api.srv.Close()
	client, store := newTestClient(t, api)

	require.NoError(t, store.Store("course", 1, []byte(`{"count": 1, "resu`)))

	_, err := client.FetchDataset(context.Background(), ResourceCourses)
	require.ErrorIs(t, err, pagestore.ErrCorruptPage)
	require.EqualValues(t, 0, api.requests.Load())
}

func TestFetchAll(t *testing.T) {
	api := newFakeAPI(2)
	defer api.srv.Close()
	client, store := newTestClient(t, api)

	require.NoError(t, client.FetchAll(context.Background()))
	for _, res := range Resources {
		_, err := os.Stat(store.DatasetPath(res.Name))
		require.NoError(t, err, res.Name)
	}
}
