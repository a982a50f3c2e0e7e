package aptos

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeFullnode serves canned Aptos REST responses and answers everything else with the fullnode's 404 shapes.
type fakeFullnode struct {
	mu           sync.Mutex
	transactions map[string]string
	resources    map[string]string
	tables       map[string]string
	ledger       string
	failAll      bool
	requests     []string
}

func newFakeFullnode() *fakeFullnode {
	return &fakeFullnode{
		transactions: map[string]string{},
		resources:    map[string]string{},
		tables:       map[string]string{},
	}
}

func resourceKey(account, resourceType string) string {
	return account + "|" + resourceType
}

func tableKey(handle string, key any) string {
	b, _ := json.Marshal(key)
	return handle + "|" + string(b)
}

func (f *fakeFullnode) setResource(account, resourceType, data string) {
	f.resources[resourceKey(account, resourceType)] = fmt.Sprintf(`{"type":%q,"data":%s}`, resourceType, data)
}

func (f *fakeFullnode) setTableItem(handle string, key any, value string) {
	f.tables[tableKey(handle, key)] = value
}

func notFound(w http.ResponseWriter, code string) {
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, `{"message":"not found","error_code":%q,"vm_error_code":null}`, code)
}

func (f *fakeFullnode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if f.failAll {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"message":"service unavailable","error_code":"internal_error"}`)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/v1":
		fmt.Fprint(w, f.ledger)

	case strings.HasPrefix(path, "/v1/transactions/by_hash/"):
		tx, ok := f.transactions[strings.TrimPrefix(path, "/v1/transactions/by_hash/")]
		if !ok {
			notFound(w, "transaction_not_found")
			return
		}
		fmt.Fprint(w, tx)

	case strings.HasPrefix(path, "/v1/accounts/"):
		parts := strings.SplitN(strings.TrimPrefix(path, "/v1/accounts/"), "/resource/", 2)
		if len(parts) != 2 {
			notFound(w, "web_framework_error")
			return
		}
		res, ok := f.resources[resourceKey(parts[0], parts[1])]
		if !ok {
			notFound(w, "resource_not_found")
			return
		}
		fmt.Fprint(w, res)

	case strings.HasPrefix(path, "/v1/tables/") && r.Method == http.MethodPost:
		handle := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/tables/"), "/item")
		body, _ := io.ReadAll(r.Body)
		var req TableItemRequest
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"bad request","error_code":"invalid_input"}`)
			return
		}
		item, ok := f.tables[tableKey(handle, req.Key)]
		if !ok {
			notFound(w, "table_item_not_found")
			return
		}
		fmt.Fprint(w, item)

	default:
		notFound(w, "")
	}
}

func (f *fakeFullnode) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestApi(t *testing.T, node *fakeFullnode) AptosApi {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	return NewAptosApiConnection(srv.URL+"/v1", 5*time.Second, nil)
}
