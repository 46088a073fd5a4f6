package directory

import (
	"context"
	"sort"
	"strings"
)

// Choice is an id/name pair feeding a select dropdown.
type Choice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CampusGroup is a campus with its buildings, for single-call frontend loads.
type CampusGroup struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Buildings []Choice `json:"buildings"`
}

// Campuses derives the deduplicated branch list from the cached locations,
// sorted case-insensitively by name. Recomputed on every call so it always
// reflects the latest cached raw data.
func (c *Cache) Campuses(ctx context.Context) ([]Choice, error) {
	locations, err := c.Locations(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	campuses := make([]Choice, 0)
	for _, loc := range locations {
		if loc.Branch == nil {
			continue
		}
		if _, ok := seen[loc.Branch.ID]; ok {
			continue
		}
		seen[loc.Branch.ID] = struct{}{}
		campuses = append(campuses, Choice{ID: loc.Branch.ID, Name: loc.Branch.Name})
	}

	sortChoices(campuses)
	return campuses, nil
}

// BuildingsForCampus derives the buildings belonging to one branch, sorted
// case-insensitively by name.
func (c *Cache) BuildingsForCampus(ctx context.Context, branchID string) ([]Choice, error) {
	locations, err := c.Locations(ctx)
	if err != nil {
		return nil, err
	}

	buildings := make([]Choice, 0)
	for _, loc := range locations {
		if loc.Branch == nil || loc.Branch.ID != branchID {
			continue
		}
		buildings = append(buildings, Choice{ID: loc.ID, Name: loc.Name})
	}

	sortChoices(buildings)
	return buildings, nil
}

// LocationsByCampus groups every building under its campus, both levels
// sorted case-insensitively by name.
func (c *Cache) LocationsByCampus(ctx context.Context) ([]CampusGroup, error) {
	locations, err := c.Locations(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	groups := make([]CampusGroup, 0)
	for _, loc := range locations {
		if loc.Branch == nil {
			continue
		}
		i, ok := index[loc.Branch.ID]
		if !ok {
			i = len(groups)
			index[loc.Branch.ID] = i
			groups = append(groups, CampusGroup{ID: loc.Branch.ID, Name: loc.Branch.Name})
		}
		groups[i].Buildings = append(groups[i].Buildings, Choice{ID: loc.ID, Name: loc.Name})
	}

	for i := range groups {
		sortChoices(groups[i].Buildings)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})
	return groups, nil
}

func sortChoices(choices []Choice) {
	sort.SliceStable(choices, func(i, j int) bool {
		return strings.ToLower(choices[i].Name) < strings.ToLower(choices[j].Name)
	})
}
