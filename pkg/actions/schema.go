package actions

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": description}
}

func objectSchema(kind Kind, properties map[string]any, required ...string) map[string]any {
	properties["action_type"] = map[string]any{"const": string(kind)}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   append([]string{"action_type"}, required...),
	}
}

// Schema returns the JSON schema of an action node config, or nil for unknown kinds.
func Schema(kind Kind) map[string]any {
	switch kind {
	case KindDispatchMessage:
		return objectSchema(kind, map[string]any{
			"channel_id": stringProperty("Dispatch channel identifier"),
			"phone":      stringProperty("Destination phone. Supports lead templates, e.g. {{.Phone}}"),
			"body":       stringProperty("Message body. Supports lead templates"),
		}, "channel_id", "phone", "body")
	case KindApplyTag:
		return objectSchema(kind, map[string]any{
			"tag_id": stringProperty("Tag to associate with the lead"),
		}, "tag_id")
	case KindMoveStage:
		return objectSchema(kind, map[string]any{
			"stage_id": stringProperty("Target pipeline stage"),
		}, "stage_id")
	case KindAppendNote:
		return objectSchema(kind, map[string]any{
			"text": stringProperty("Note text. Supports lead templates"),
		}, "text")
	case KindEnqueueCallback:
		return objectSchema(kind, map[string]any{
			"priority": map[string]any{
				"type":    "string",
				"enum":    []string{"low", "medium", "high"},
				"default": "medium",
			},
			"notes": map[string]any{"type": "string"},
		})
	case KindUpdateField:
		return objectSchema(kind, map[string]any{
			"field": stringProperty("Lead attribute to overwrite"),
			"value": map[string]any{"description": "New value; may be false, 0 or empty but not absent"},
		}, "field", "value")
	default:
		return nil
	}
}
