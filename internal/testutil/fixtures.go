package testutil

import (
	"embed"
	"encoding/json"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
)

//go:embed fixtures/*.json
var fixturesFS embed.FS

// Session ids in fixtures/sessions.json
const (
	ActiveSessionID    = "6f1c2a9e-0000-4000-8000-000000000001"
	CompletedSessionID = "6f1c2a9e-0000-4000-8000-000000000002"
)

// LoadFixture loads a JSON fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

func loadInto(name string, v any) error {
	data, err := LoadFixture(name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Labs loads the lab catalog fixture.
func Labs() ([]api.Lab, error) {
	var labs api.LabList
	if err := loadInto("labs.json", &labs); err != nil {
		return nil, err
	}
	return labs, nil
}

// Lab loads one lab from the catalog fixture.
func Lab(id string) (*api.Lab, error) {
	labs, err := Labs()
	if err != nil {
		return nil, err
	}
	for i := range labs {
		if labs[i].ID == id {
			return &labs[i], nil
		}
	}
	return nil, nil
}

// Sessions loads the session list fixture.
func Sessions() ([]api.Session, error) {
	var ss api.SessionList
	if err := loadInto("sessions.json", &ss); err != nil {
		return nil, err
	}
	return ss, nil
}

// Inventory loads the resource inventory fixture.
func Inventory() (*api.ResourceInventory, error) {
	var inv api.ResourceInventory
	if err := loadInto("inventory.json", &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Stats loads the admin stats fixture.
func Stats() (*api.Stats, error) {
	var st api.Stats
	if err := loadInto("stats.json", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Identity loads the /me fixture.
func Identity() (*api.Identity, error) {
	var id api.Identity
	if err := loadInto("identity.json", &id); err != nil {
		return nil, err
	}
	return &id, nil
}
