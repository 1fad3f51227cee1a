// ABOUTME: Grouped, filtered permission view for one API key
// ABOUTME: Reports per-item checked state and per-group full/partial selection

package grants

import (
	"github.com/samber/lo"

	"github.com/2389/mcp-router/internal/permission"
)

// Item is one catalog identifier as shown in a view.
type Item struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Checked    bool   `json:"checked"`
}

// GroupView is one server group after filtering.
type GroupView struct {
	Server        string `json:"server"`
	Items         []Item `json:"items"`
	SelectedCount int    `json:"selected_count"`
	Total         int    `json:"total"`
	Full          bool   `json:"full"`
	Partial       bool   `json:"partial"`
}

// View is the permission state of one key over the filtered catalog.
type View struct {
	KeyID    string      `json:"key_id"`
	Query    string      `json:"q,omitempty"`
	Groups   []GroupView `json:"groups"`
	Selected int         `json:"selected"`
	Total    int         `json:"total"`
	Granted  []string    `json:"granted"`
}

// BuildView groups the catalog, applies the search term and marks every
// visible identifier as checked or not.
func BuildView(keyID, query string, catalog []string, granted permission.Set) *View {
	groups := permission.FilterGroups(permission.GroupByServer(catalog), query)
	checked := permission.ComputeCheckedSet(permission.Identifiers(groups), granted)

	v := &View{
		KeyID:   keyID,
		Query:   query,
		Groups:  make([]GroupView, 0, len(groups)),
		Granted: granted.Sorted(),
	}
	for _, g := range groups {
		items := lo.Map(g.Identifiers, func(id string, _ int) Item {
			_, name, _ := permission.SplitIdentifier(id)
			return Item{Identifier: id, Name: name, Checked: checked.Has(id)}
		})
		selected := lo.CountBy(items, func(it Item) bool { return it.Checked })
		v.Groups = append(v.Groups, GroupView{
			Server:        g.Server,
			Items:         items,
			SelectedCount: selected,
			Total:         len(items),
			Full:          selected > 0 && selected == len(items),
			Partial:       selected > 0 && selected < len(items),
		})
		v.Selected += selected
		v.Total += len(items)
	}
	return v
}
