package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/starford/dagaz/internal/models"
)

// GraphNode is one node in the agent/skill usage graph.
type GraphNode struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"` // "agent" or "skill"
	Label string `json:"label,omitempty"`
}

// GraphLink is one agent→skill usage edge.
type GraphLink struct {
	Source string `json:"source"` // agent id
	Target string `json:"target"` // skill id
	Tier   string `json:"tier"`   // "precompiled" or "dynamic"
}

// Graph returns the agent→skill usage graph derived from the stored skill
// partitions. Skill nodes are shared across agents; agents with empty skill
// sets still appear as isolated nodes.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT id, role, skills_precompiled, skills_dynamic FROM agents ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: graph: %w", err)
	}
	defer rows.Close()

	var nodes []GraphNode
	var links []GraphLink
	skills := make(map[string]string) // skill id → display name

	for rows.Next() {
		var id, role, pre, dyn string
		if err := rows.Scan(&id, &role, &pre, &dyn); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, GraphNode{ID: id, Kind: "agent", Label: role})

		for _, tier := range []struct {
			raw  string
			name string
		}{{pre, "precompiled"}, {dyn, "dynamic"}} {
			var refs []models.SkillRef
			_ = json.Unmarshal([]byte(tier.raw), &refs)
			for _, s := range refs {
				if _, ok := skills[s.ID]; !ok {
					skills[s.ID] = s.DisplayName
				}
				links = append(links, GraphLink{Source: id, Target: s.ID, Tier: tier.name})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(skills))
	for id := range skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		nodes = append(nodes, GraphNode{ID: id, Kind: "skill", Label: skills[id]})
	}

	return nodes, links, nil
}
