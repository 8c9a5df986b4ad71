package llm

import (
	"encoding/json"
	"testing"
)

func TestParseActionItems(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string // MarshalJSON 之后的形态
	}{
		{"valid array", `[{"task":"a"},{"task":"b"}]`, `[{"task":"a"},{"task":"b"}]`},
		{"empty array", `[]`, `[]`},
		{"blank input", ``, `[]`},
		{"whitespace only", "  \n\t ", `[]`},
		{"not json", `not json`, `{"raw":"not json"}`},
		{"json object not array", `{"task":"a"}`, `{"raw":"{\"task\":\"a\"}"}`},
		{"markdown fenced", "```json\n[]\n```", "{\"raw\":\"```json\\n[]\\n```\"}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(ParseActionItems(tc.in))
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("ParseActionItems(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseActionItemsTrimsBeforeParsing(t *testing.T) {
	a := ParseActionItems("  [1, 2]  ")
	if a.IsRaw {
		t.Fatal("trimmed array should parse")
	}
	if len(a.Items) != 2 {
		t.Fatalf("items = %d", len(a.Items))
	}
}
