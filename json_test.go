package gonewton_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/njchilds90/gonewton"
)

func TestToJSON_Num(t *testing.T) {
	j, err := gonewton.ToJSON(gonewton.F(3, 4))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(j, `"type":"num"`) || !strings.Contains(j, `"value":"3/4"`) {
		t.Errorf("unexpected JSON: %s", j)
	}
}

func TestFromJSON_RoundTrip(t *testing.T) {
	for _, in := range []string{
		"sin(x)*y^2 + exp(-x)/3 - pi",
		"sqrt(x^2 + y^2) - 2",
		"x^y + atan(y/x) + abs(x - 1)",
	} {
		orig := mustParse(t, in)
		j, err := gonewton.ToJSON(orig)
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(j), &m); err != nil {
			t.Fatal(err)
		}
		back, err := gonewton.FromJSON(m)
		if err != nil {
			t.Fatalf("FromJSON(%s): %v", j, err)
		}
		if back.String() != orig.String() {
			t.Errorf("round trip of %q: want %s, got %s", in, orig, back)
		}
	}
}

func TestFromJSON_Rejects(t *testing.T) {
	cases := []string{
		`{}`,
		`{"type":"matrix"}`,
		`{"type":"num","value":"abc"}`,
		`{"type":"const","name":"tau"}`,
		`{"type":"func","name":"gamma","arg":{"type":"sym","name":"x"}}`,
		`{"type":"add","terms":[1,2]}`,
		`{"type":"pow","base":{"type":"sym","name":"x"}}`,
	}
	for _, c := range cases {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(c), &m); err != nil {
			t.Fatal(err)
		}
		if _, err := gonewton.FromJSON(m); err == nil {
			t.Errorf("FromJSON(%s): expected an error", c)
		}
	}
}
