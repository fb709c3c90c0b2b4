package models

// Group carries the full membership split by role. Admins are a disjoint
// role set layered on top of plain membership; every group has at least
// one admin at all times.
type Group struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Members []int64 `json:"members"`
	Admins  []int64 `json:"admins"`
}

// Recipients returns every member and admin except excludeID.
func (g *Group) Recipients(excludeID int64) []int64 {
	recipients := make([]int64, 0, len(g.Members)+len(g.Admins))
	seen := make(map[int64]struct{}, len(g.Members)+len(g.Admins))
	for _, id := range append(append([]int64{}, g.Members...), g.Admins...) {
		if id == excludeID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	return recipients
}

// HasMember reports whether userID is in the group under any role.
func (g *Group) HasMember(userID int64) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return g.HasAdmin(userID)
}

// HasAdmin reports whether userID holds the admin role.
func (g *Group) HasAdmin(userID int64) bool {
	for _, id := range g.Admins {
		if id == userID {
			return true
		}
	}
	return false
}
