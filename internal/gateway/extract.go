package gateway

import (
	"github.com/routex/routex/internal/chatmsg"
	"github.com/routex/routex/internal/jsonvalue"
)

// extractMessages normalizes a wire body's "messages" array (and a
// top-level Anthropic-style "system" string) into chatmsg.Message, handling
// both the plain-string and content-block-array content shapes.
func extractMessages(body *jsonvalue.Object) []chatmsg.Message {
	var out []chatmsg.Message

	if sys, ok := body.Get("system"); ok {
		if s, ok := sys.(string); ok && s != "" {
			out = append(out, chatmsg.Message{Role: chatmsg.RoleSystem, Blocks: []chatmsg.Block{{Type: chatmsg.BlockText, Text: s}}})
		}
	}

	msgsV, ok := body.Get("messages")
	if !ok {
		return out
	}
	arr, ok := msgsV.(jsonvalue.Array)
	if !ok {
		return out
	}

	for _, m := range arr {
		mo, ok := m.(*jsonvalue.Object)
		if !ok {
			continue
		}
		role := chatmsg.Role(mo.GetString("role"))
		content, _ := mo.Get("content")
		out = append(out, chatmsg.Message{Role: role, Blocks: extractBlocks(content)})
	}
	return out
}

func extractBlocks(content jsonvalue.Value) []chatmsg.Block {
	switch t := content.(type) {
	case string:
		return []chatmsg.Block{{Type: chatmsg.BlockText, Text: t}}
	case jsonvalue.Array:
		var blocks []chatmsg.Block
		for _, e := range t {
			eo, ok := e.(*jsonvalue.Object)
			if !ok {
				continue
			}
			switch eo.GetString("type") {
			case "text":
				blocks = append(blocks, chatmsg.Block{Type: chatmsg.BlockText, Text: eo.GetString("text")})
			case "image", "image_url":
				blocks = append(blocks, chatmsg.Block{Type: chatmsg.BlockImage})
			case "tool_use", "tool_call":
				blocks = append(blocks, chatmsg.Block{Type: chatmsg.BlockTool, Text: eo.GetString("name")})
			}
		}
		return blocks
	default:
		return nil
	}
}

func extractTools(body *jsonvalue.Object) []chatmsg.Tool {
	toolsV, ok := body.Get("tools")
	if !ok {
		return nil
	}
	arr, ok := toolsV.(jsonvalue.Array)
	if !ok {
		return nil
	}
	var out []chatmsg.Tool
	for _, t := range arr {
		to, ok := t.(*jsonvalue.Object)
		if !ok {
			continue
		}
		if name := to.GetString("name"); name != "" {
			out = append(out, chatmsg.Tool{Name: name, Description: to.GetString("description")})
			continue
		}
		// OpenAI tools nest name/description under "function".
		if fnV, ok := to.Get("function"); ok {
			if fn, ok := fnV.(*jsonvalue.Object); ok {
				out = append(out, chatmsg.Tool{Name: fn.GetString("name"), Description: fn.GetString("description")})
			}
		}
	}
	return out
}
