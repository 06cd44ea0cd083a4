package engine

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestGameStateMatchesSchema(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("testdata", "state.schema.json"))
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	g := newTestGame(t, 77)
	for i := 0; i < 60; i++ {
		state := g.Tick()
		if i%12 != 0 && len(state.Merchants) == 0 {
			continue
		}
		b, err := json.Marshal(state)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("tick %d: validate: %v\n%s", state.Tick, err, b)
		}
	}
}
