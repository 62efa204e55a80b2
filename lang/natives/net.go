package natives

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/glipt-org/glipt/lang/permission"
	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

func registerNet(th *vm.Thread) {
	defineModule(th, "net", []moduleEntry{
		{"get", -1, netGetFn},
		{"post", -1, netPostFn},
		{"put", -1, netPutFn},
		{"delete", -1, netDeleteFn},
		{"resolve", 1, netResolveFn},
	}, nil)
}

// doHTTP performs one request and returns {status, body}. The capability
// check is against the URL's host, not the full URL.
func doHTTP(th *vm.Thread, method, rawURL, body string) (value.Value, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return value.Nil, vm.Raisef("net", "Invalid URL")
	}
	host := u.Hostname()
	if !th.Perms.Has(permission.Net, host) {
		return value.Nil, vm.Raisef("permission", "Permission denied: net %q", host)
	}

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, rawURL, reqBody)
	if err != nil {
		return value.Nil, vm.Raisef("net", "Invalid request: %s", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return value.Nil, vm.Raisef("net", "Request failed: %s", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Nil, vm.Raisef("net", "Could not read response: %s", err)
	}

	m, mv := th.NewMap()
	th.Protect(mv)
	th.SetField(m, "status", value.Int(int64(resp.StatusCode)))
	th.SetField(m, "body", th.StringValue(string(data)))
	th.Unprotect(1)
	return mv, nil
}

func netGetFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	u, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return doHTTP(th, http.MethodGet, u, "")
}

func netPostFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	u, ok1 := argString(args, 0)
	body, ok2 := argString(args, 1)
	if !ok1 || !ok2 {
		return value.Nil, nil
	}
	return doHTTP(th, http.MethodPost, u, body)
}

func netPutFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	u, ok1 := argString(args, 0)
	body, ok2 := argString(args, 1)
	if !ok1 || !ok2 {
		return value.Nil, nil
	}
	return doHTTP(th, http.MethodPut, u, body)
}

func netDeleteFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	u, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return doHTTP(th, http.MethodDelete, u, "")
}

func netResolveFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	host, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if !th.Perms.Has(permission.Net, host) {
		return value.Nil, vm.Raisef("permission", "Permission denied: net %q", host)
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return value.Nil, vm.Raisef("net", "Could not resolve %q", host)
	}
	elems := make([]value.Value, 0, len(addrs))
	for _, a := range addrs {
		v := th.StringValue(a)
		th.Protect(v)
		elems = append(elems, v)
	}
	lv := th.NewList(elems)
	th.Unprotect(len(elems))
	return lv, nil
}
