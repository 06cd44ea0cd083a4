package catalogs

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(c.Resources) != 5 || len(c.Recipes) != 3 || len(c.Merchants) != 2 {
		t.Errorf("default catalog sizes = %d/%d/%d", len(c.Resources), len(c.Recipes), len(c.Merchants))
	}
}

func TestBuild(t *testing.T) {
	g := Default().Build(1000, 0)
	food, ok := g.Market("food")
	if !ok {
		t.Fatal("no food market")
	}
	if food.Price() != 5 || food.Stock() != 250 {
		t.Errorf("food = price %v stock %v", food.Price(), food.Stock())
	}
	if g.Wealth() != 1000 || len(g.Markets()) != 5 {
		t.Errorf("wealth %v markets %d", g.Wealth(), len(g.Markets()))
	}
}

func TestLoad(t *testing.T) {
	path := writeTempFile(t, `
resources:
  - {id: ore, price: 3, stock: 10, unit: t}
  - {id: metal, price: 12, stock: 0, unit: t}
recipes:
  - name: Smelt
    inputs: {ore: 2}
    outputs: {metal: 1}
merchants:
  - name: Ore barge
    wealth: 40
    cargo:
      - {resource: ore, min: 5, max: 15}
    profit_margin: 0.1
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(c.Recipes) != 1 || c.Recipes[0].Inputs["ore"] != 2 || c.Recipes[0].Outputs["metal"] != 1 {
		t.Errorf("recipes = %+v", c.Recipes)
	}
	if m := c.Merchants[0]; m.Weight != 1 || m.Cargo[0].Max != 15 || m.ProfitMargin != 0.1 {
		t.Errorf("merchant = %+v", m)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no resources", `recipes: []`, "no resources"},
		{"bad price", `resources: [{id: a, price: 0}]`, "price"},
		{"duplicate", `resources: [{id: a, price: 1}, {id: a, price: 2}]`, "twice"},
		{"unknown recipe input", `
resources: [{id: a, price: 1}]
recipes: [{name: R, inputs: {b: 1}, outputs: {a: 1}}]`, "unknown resource"},
		{"margin out of range", `
resources: [{id: a, price: 1}]
merchants: [{name: M, profit_margin: 1.5}]`, "profit_margin"},
		{"inverted cargo range", `
resources: [{id: a, price: 1}]
merchants: [{name: M, cargo: [{resource: a, min: 9, max: 3}]}]`, "cargo range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempFile(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestCargoRoller(t *testing.T) {
	def := MerchantDef{
		Name: "M",
		Cargo: []CargoDef{
			{Resource: "ore", Min: 10, Max: 20},
			{Resource: "gem", Min: 3},
		},
	}
	a, b := NewCargoRoller(42), NewCargoRoller(42)
	for tick := uint64(0); tick < 200; tick += 24 {
		got := a.Roll(def, tick)
		if again := b.Roll(def, tick); again["ore"] != got["ore"] {
			t.Fatalf("tick %d: %v != %v", tick, got["ore"], again["ore"])
		}
		if got["ore"] < 10 || got["ore"] > 20 {
			t.Errorf("tick %d: ore %v outside [10, 20]", tick, got["ore"])
		}
		if got["gem"] != 3 {
			t.Errorf("tick %d: gem %v, want 3", tick, got["gem"])
		}
	}
}

func TestShippedCatalogMatchesDefault(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "catalog.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(c, Default()) {
		t.Errorf("configs/catalog.yaml drifted from Default():\n%+v", c)
	}
}
