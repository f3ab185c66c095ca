package utils

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONRequest(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}
	cases := map[string]bool{
		`{"name": "bar"}`:             true,
		`{"name": "bar"} `:            true,
		`{"name": "bar", "extra": 1}`: false,
		`{"name": "bar"} {}`:          false,
		`{"name":`:                    false,
		``:                            false,
	}
	for in, ok := range cases {
		var dst body
		err := DecodeJSONRequest(httptest.NewRequest("POST", "/", strings.NewReader(in)), &dst)
		if (err == nil) != ok {
			t.Errorf("%q: err = %v, want ok=%v", in, err, ok)
		}
	}
}
