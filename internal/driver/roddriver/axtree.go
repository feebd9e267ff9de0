package roddriver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/devbydaniel/a11yverify/internal/driver"
)

func queryAXNodes(page *rod.Page, name, role string) ([]*proto.AccessibilityAXNode, error) {
	zero := 0
	doc, err := proto.DOMGetDocument{Depth: &zero}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	result, err := proto.AccessibilityQueryAXTree{
		BackendNodeID:  doc.Root.BackendNodeID,
		AccessibleName: name,
		Role:           role,
	}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("accessibility query failed: %w", err)
	}
	return result.Nodes, nil
}

// AXTree returns the page's accessibility tree, flattened depth first with
// ignored nodes elided.
func (p *Page) AXTree(ctx context.Context, depth int) ([]driver.AXNode, error) {
	req := proto.AccessibilityGetFullAXTree{}
	if depth > 0 {
		req.Depth = &depth
	}
	result, err := req.Call(p.page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get accessibility tree: %w", err)
	}
	return flattenAXTree(result.Nodes), nil
}

func axValueStr(v *proto.AccessibilityAXValue) string {
	if v == nil {
		return ""
	}
	raw := v.Value.JSON("", "")
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s
		}
	}
	return raw
}

func flattenAXTree(nodes []*proto.AccessibilityAXNode) []driver.AXNode {
	if len(nodes) == 0 {
		return nil
	}

	nodeByID := make(map[proto.AccessibilityAXNodeID]*proto.AccessibilityAXNode, len(nodes))
	for _, n := range nodes {
		nodeByID[n.NodeID] = n
	}

	var rootID proto.AccessibilityAXNodeID
	for _, n := range nodes {
		if n.ParentID == "" {
			rootID = n.NodeID
			break
		}
	}
	if rootID == "" {
		rootID = nodes[0].NodeID
	}

	var out []driver.AXNode
	var walk func(id proto.AccessibilityAXNodeID, depth int)
	walk = func(id proto.AccessibilityAXNodeID, depth int) {
		node, ok := nodeByID[id]
		if !ok {
			return
		}
		if node.Ignored {
			for _, childID := range node.ChildIDs {
				walk(childID, depth)
			}
			return
		}
		out = append(out, driver.AXNode{
			Depth:      depth,
			Role:       axValueStr(node.Role),
			Name:       axValueStr(node.Name),
			Properties: formatProperties(node.Properties),
		})
		for _, childID := range node.ChildIDs {
			walk(childID, depth+1)
		}
	}
	walk(rootID, 0)
	return out
}

func formatProperties(props []*proto.AccessibilityAXProperty) []string {
	var parts []string
	for _, p := range props {
		val := axValueStr(p.Value)
		switch string(p.Name) {
		case "focusable", "disabled", "editable", "hidden", "required",
			"checked", "expanded", "selected", "modal", "multiline",
			"multiselectable", "readonly", "focused", "settable":
			if val == "true" {
				parts = append(parts, string(p.Name))
			}
		case "level":
			parts = append(parts, fmt.Sprintf("level=%s", val))
		case "autocomplete", "hasPopup", "orientation", "live",
			"relevant", "valuemin", "valuemax", "valuetext",
			"roledescription", "keyshortcuts":
			if val != "" {
				parts = append(parts, fmt.Sprintf("%s=%s", p.Name, val))
			}
		}
	}
	return parts
}
