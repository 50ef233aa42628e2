package transform

import (
	"context"
	"net/http"

	"github.com/routex/routex/internal/jsonvalue"
)

// AnthropicFormatTransformer converts an OpenAI Chat Completions-shaped body
// into Anthropic Messages shape on the request path, and the reverse on the
// response path.
type AnthropicFormatTransformer struct{ BaseTransformer }

func (AnthropicFormatTransformer) TransformRequest(_ context.Context, body *jsonvalue.Object, _ Options, _ PipelineContext) (*jsonvalue.Object, http.Header, error) {
	if isAnthropicShaped(body) {
		return body, nil, nil
	}
	return openAIRequestToAnthropic(body), nil, nil
}

func (AnthropicFormatTransformer) TransformResponse(_ context.Context, body *jsonvalue.Object, _ Options, _ PipelineContext) (*jsonvalue.Object, error) {
	if body == nil || body.GetString("type") != "message" {
		return body, nil
	}
	return anthropicResponseToOpenAI(body), nil
}

// OpenAIFormatTransformer converts an Anthropic Messages-shaped body into
// OpenAI Chat Completions shape on the request path, and the reverse on the
// response path.
type OpenAIFormatTransformer struct{ BaseTransformer }

func (OpenAIFormatTransformer) TransformRequest(_ context.Context, body *jsonvalue.Object, _ Options, _ PipelineContext) (*jsonvalue.Object, http.Header, error) {
	if !isAnthropicShaped(body) {
		return body, nil, nil
	}
	return anthropicRequestToOpenAI(body), nil, nil
}

func (OpenAIFormatTransformer) TransformResponse(_ context.Context, body *jsonvalue.Object, _ Options, _ PipelineContext) (*jsonvalue.Object, error) {
	if body == nil {
		return body, nil
	}
	if _, ok := body.Get("choices"); !ok {
		return body, nil
	}
	return openAIResponseToAnthropic(body), nil
}

// isAnthropicShaped heuristically distinguishes the two wire shapes: a
// top-level "system" string field, or a "content" array on messages, are
// Anthropic Messages hallmarks absent from OpenAI Chat Completions bodies.
func isAnthropicShaped(body *jsonvalue.Object) bool {
	if body == nil {
		return false
	}
	if _, ok := body.Get("system"); ok {
		return true
	}
	msgs, ok := body.Get("messages")
	if !ok {
		return false
	}
	arr, ok := msgs.(jsonvalue.Array)
	if !ok || len(arr) == 0 {
		return false
	}
	first, ok := arr[0].(*jsonvalue.Object)
	if !ok {
		return false
	}
	_, hasContentArray := first.Get("content")
	if v, ok := first.Get("content"); ok {
		_, isArray := v.(jsonvalue.Array)
		return isArray
	}
	return hasContentArray
}

func openAIRequestToAnthropic(body *jsonvalue.Object) *jsonvalue.Object {
	out := jsonvalue.NewObject()
	if v, ok := body.Get("model"); ok {
		out.Set("model", v)
	}
	if v, ok := body.Get("max_tokens"); ok {
		out.Set("max_tokens", v)
	} else {
		out.Set("max_tokens", float64(4096))
	}
	if v, ok := body.Get("temperature"); ok {
		out.Set("temperature", v)
	}
	if v, ok := body.Get("stream"); ok {
		out.Set("stream", v)
	}

	msgsV, _ := body.Get("messages")
	msgs, _ := msgsV.(jsonvalue.Array)

	var anthMessages jsonvalue.Array
	for _, m := range msgs {
		mo, ok := m.(*jsonvalue.Object)
		if !ok {
			continue
		}
		role := mo.GetString("role")
		content, _ := mo.Get("content")
		if role == "system" {
			if s, ok := content.(string); ok {
				out.Set("system", s)
			}
			continue
		}
		nm := jsonvalue.NewObject()
		nm.Set("role", role)
		nm.Set("content", contentToAnthropicBlocks(content))
		anthMessages = append(anthMessages, nm)
	}
	out.Set("messages", anthMessages)

	if tools, ok := body.Get("tools"); ok {
		out.Set("tools", convertToolsOpenAIToAnthropic(tools))
	}
	return out
}

func contentToAnthropicBlocks(content jsonvalue.Value) jsonvalue.Array {
	switch t := content.(type) {
	case string:
		block := jsonvalue.NewObject()
		block.Set("type", "text")
		block.Set("text", t)
		return jsonvalue.Array{block}
	case jsonvalue.Array:
		out := make(jsonvalue.Array, 0, len(t))
		for _, e := range t {
			eo, ok := e.(*jsonvalue.Object)
			if !ok {
				continue
			}
			switch eo.GetString("type") {
			case "text":
				b := jsonvalue.NewObject()
				b.Set("type", "text")
				b.Set("text", eo.GetString("text"))
				out = append(out, b)
			case "image_url":
				urlV, _ := eo.Get("image_url")
				urlObj, _ := urlV.(*jsonvalue.Object)
				b := jsonvalue.NewObject()
				b.Set("type", "image")
				src := jsonvalue.NewObject()
				src.Set("type", "url")
				if urlObj != nil {
					src.Set("url", urlObj.GetString("url"))
				}
				b.Set("source", src)
				out = append(out, b)
			default:
				out = append(out, eo)
			}
		}
		return out
	default:
		return nil
	}
}

func convertToolsOpenAIToAnthropic(tools jsonvalue.Value) jsonvalue.Array {
	arr, ok := tools.(jsonvalue.Array)
	if !ok {
		return nil
	}
	out := make(jsonvalue.Array, 0, len(arr))
	for _, t := range arr {
		to, ok := t.(*jsonvalue.Object)
		if !ok {
			continue
		}
		fnV, _ := to.Get("function")
		fn, _ := fnV.(*jsonvalue.Object)
		nt := jsonvalue.NewObject()
		if fn != nil {
			nt.Set("name", fn.GetString("name"))
			nt.Set("description", fn.GetString("description"))
			if params, ok := fn.Get("parameters"); ok {
				nt.Set("input_schema", params)
			}
		}
		out = append(out, nt)
	}
	return out
}

func anthropicRequestToOpenAI(body *jsonvalue.Object) *jsonvalue.Object {
	out := jsonvalue.NewObject()
	if v, ok := body.Get("model"); ok {
		out.Set("model", v)
	}
	if v, ok := body.Get("max_tokens"); ok {
		out.Set("max_tokens", v)
	}
	if v, ok := body.Get("temperature"); ok {
		out.Set("temperature", v)
	}
	if v, ok := body.Get("stream"); ok {
		out.Set("stream", v)
	}

	var openaiMessages jsonvalue.Array
	if sys, ok := body.Get("system"); ok {
		if s, ok := sys.(string); ok && s != "" {
			sm := jsonvalue.NewObject()
			sm.Set("role", "system")
			sm.Set("content", s)
			openaiMessages = append(openaiMessages, sm)
		}
	}

	msgsV, _ := body.Get("messages")
	msgs, _ := msgsV.(jsonvalue.Array)
	for _, m := range msgs {
		mo, ok := m.(*jsonvalue.Object)
		if !ok {
			continue
		}
		nm := jsonvalue.NewObject()
		nm.Set("role", mo.GetString("role"))
		content, _ := mo.Get("content")
		nm.Set("content", blocksToOpenAIContent(content))
		openaiMessages = append(openaiMessages, nm)
	}
	out.Set("messages", openaiMessages)

	if tools, ok := body.Get("tools"); ok {
		out.Set("tools", convertToolsAnthropicToOpenAI(tools))
	}
	return out
}

func blocksToOpenAIContent(content jsonvalue.Value) jsonvalue.Value {
	arr, ok := content.(jsonvalue.Array)
	if !ok {
		return content
	}
	// Simple single-text-block messages flatten to a plain string, matching
	// typical OpenAI Chat Completions request bodies.
	if len(arr) == 1 {
		if bo, ok := arr[0].(*jsonvalue.Object); ok && bo.GetString("type") == "text" {
			return bo.GetString("text")
		}
	}
	out := make(jsonvalue.Array, 0, len(arr))
	for _, e := range arr {
		eo, ok := e.(*jsonvalue.Object)
		if !ok {
			continue
		}
		switch eo.GetString("type") {
		case "text":
			b := jsonvalue.NewObject()
			b.Set("type", "text")
			b.Set("text", eo.GetString("text"))
			out = append(out, b)
		case "image":
			srcV, _ := eo.Get("source")
			src, _ := srcV.(*jsonvalue.Object)
			b := jsonvalue.NewObject()
			b.Set("type", "image_url")
			iu := jsonvalue.NewObject()
			if src != nil {
				iu.Set("url", src.GetString("url"))
			}
			b.Set("image_url", iu)
			out = append(out, b)
		default:
			out = append(out, eo)
		}
	}
	return out
}

func convertToolsAnthropicToOpenAI(tools jsonvalue.Value) jsonvalue.Array {
	arr, ok := tools.(jsonvalue.Array)
	if !ok {
		return nil
	}
	out := make(jsonvalue.Array, 0, len(arr))
	for _, t := range arr {
		to, ok := t.(*jsonvalue.Object)
		if !ok {
			continue
		}
		nt := jsonvalue.NewObject()
		nt.Set("type", "function")
		fn := jsonvalue.NewObject()
		fn.Set("name", to.GetString("name"))
		fn.Set("description", to.GetString("description"))
		if schema, ok := to.Get("input_schema"); ok {
			fn.Set("parameters", schema)
		}
		nt.Set("function", fn)
		out = append(out, nt)
	}
	return out
}

// openAIResponseToAnthropic converts an OpenAI Chat Completions response
// into Anthropic Messages response shape.
func openAIResponseToAnthropic(body *jsonvalue.Object) *jsonvalue.Object {
	out := jsonvalue.NewObject()
	out.Set("type", "message")
	out.Set("role", "assistant")

	choicesV, _ := body.Get("choices")
	choices, _ := choicesV.(jsonvalue.Array)
	var text string
	if len(choices) > 0 {
		if c0, ok := choices[0].(*jsonvalue.Object); ok {
			if msgV, ok := c0.Get("message"); ok {
				if mo, ok := msgV.(*jsonvalue.Object); ok {
					text = mo.GetString("content")
				}
			}
		}
	}
	block := jsonvalue.NewObject()
	block.Set("type", "text")
	block.Set("text", text)
	out.Set("content", jsonvalue.Array{block})

	if usageV, ok := body.Get("usage"); ok {
		if u, ok := usageV.(*jsonvalue.Object); ok {
			anthUsage := jsonvalue.NewObject()
			if v, ok := u.Get("prompt_tokens"); ok {
				anthUsage.Set("input_tokens", v)
			}
			if v, ok := u.Get("completion_tokens"); ok {
				anthUsage.Set("output_tokens", v)
			}
			out.Set("usage", anthUsage)
		}
	}
	return out
}

// anthropicResponseToOpenAI converts an Anthropic Messages response into
// OpenAI Chat Completions response shape.
func anthropicResponseToOpenAI(body *jsonvalue.Object) *jsonvalue.Object {
	out := jsonvalue.NewObject()
	out.Set("object", "chat.completion")

	var text string
	if contentV, ok := body.Get("content"); ok {
		if arr, ok := contentV.(jsonvalue.Array); ok {
			for _, b := range arr {
				if bo, ok := b.(*jsonvalue.Object); ok && bo.GetString("type") == "text" {
					text += bo.GetString("text")
				}
			}
		}
	}

	message := jsonvalue.NewObject()
	message.Set("role", "assistant")
	message.Set("content", text)
	choice := jsonvalue.NewObject()
	choice.Set("index", float64(0))
	choice.Set("message", message)
	out.Set("choices", jsonvalue.Array{choice})

	if usageV, ok := body.Get("usage"); ok {
		if u, ok := usageV.(*jsonvalue.Object); ok {
			openaiUsage := jsonvalue.NewObject()
			if v, ok := u.Get("input_tokens"); ok {
				openaiUsage.Set("prompt_tokens", v)
			}
			if v, ok := u.Get("output_tokens"); ok {
				openaiUsage.Set("completion_tokens", v)
			}
			out.Set("usage", openaiUsage)
		}
	}
	return out
}
