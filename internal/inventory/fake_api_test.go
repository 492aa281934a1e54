package inventory

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/netbox-mcp/internal/netbox"
)

type apiCall struct {
	method   string
	endpoint netbox.Endpoint
	params   url.Values
}

// fakeAPI serves records from memory with a small subset of the API's
// filter semantics: exact match, "__ic" contains, "_id" on relationships,
// "q" as a name substring, and "limit".
type fakeAPI struct {
	mu      sync.Mutex
	records map[netbox.Endpoint][]netbox.Record
	errs    map[netbox.Endpoint]error
	calls   []apiCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		records: map[netbox.Endpoint][]netbox.Record{},
		errs:    map[netbox.Endpoint]error{},
	}
}

func (f *fakeAPI) add(ep netbox.Endpoint, recs ...netbox.Record) *fakeAPI {
	f.records[ep] = append(f.records[ep], recs...)
	return f
}

func (f *fakeAPI) fail(ep netbox.Endpoint, err error) *fakeAPI {
	f.errs[ep] = err
	return f
}

func (f *fakeAPI) record(method string, ep netbox.Endpoint, params url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := url.Values{}
	for k, v := range params {
		cp[k] = append([]string(nil), v...)
	}
	f.calls = append(f.calls, apiCall{method: method, endpoint: ep, params: cp})
}

func (f *fakeAPI) callsTo(ep netbox.Endpoint) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.endpoint == ep {
			out = append(out, c)
		}
	}
	return out
}

func matches(rec netbox.Record, key, want string) bool {
	switch {
	case key == "limit" || key == "brief" || key == "offset":
		return true
	case key == "q":
		return strings.Contains(strings.ToLower(text(rec["name"])+" "+text(rec["cid"])), strings.ToLower(want))
	case strings.HasSuffix(key, "__ic"):
		field := strings.TrimSuffix(key, "__ic")
		return strings.Contains(strings.ToLower(display(rec[field], "name")), strings.ToLower(want))
	case strings.HasSuffix(key, "_vid"):
		field := strings.TrimSuffix(key, "_vid")
		return text(child(rec[field], "vid")) == want
	case strings.HasSuffix(key, "_id"):
		field := strings.TrimSuffix(key, "_id")
		return text(child(rec[field], "id")) == want
	}
	return strings.EqualFold(display(rec[key], "name", "value"), want)
}

func (f *fakeAPI) filter(ep netbox.Endpoint, params url.Values) ([]netbox.Record, error) {
	if err := f.errs[ep]; err != nil {
		return nil, err
	}
	var out []netbox.Record
	for _, rec := range f.records[ep] {
		ok := true
		for key := range params {
			if !matches(rec, key, params.Get(key)) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	if n, err := strconv.Atoi(params.Get("limit")); err == nil && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

func (f *fakeAPI) List(_ context.Context, ep netbox.Endpoint, params url.Values) ([]netbox.Record, error) {
	f.record("list", ep, params)
	return f.filter(ep, params)
}

func (f *fakeAPI) Get(_ context.Context, ep netbox.Endpoint, params url.Values) (netbox.Record, error) {
	f.record("get", ep, params)
	recs, err := f.filter(ep, params)
	if err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, nil
	case 1:
		return recs[0], nil
	}
	return nil, netbox.ErrMultipleResults
}

func (f *fakeAPI) GetByID(_ context.Context, ep netbox.Endpoint, id int) (netbox.Record, error) {
	f.record("get_by_id", ep, url.Values{"id": {strconv.Itoa(id)}})
	if err := f.errs[ep]; err != nil {
		return nil, err
	}
	for _, rec := range f.records[ep] {
		if idOf(rec) == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeAPI) Count(_ context.Context, ep netbox.Endpoint, params url.Values) (int, error) {
	f.record("count", ep, params)
	recs, err := f.filter(ep, params)
	return len(recs), err
}

func named(id int, name string) map[string]any {
	return map[string]any{"id": id, "name": name}
}
