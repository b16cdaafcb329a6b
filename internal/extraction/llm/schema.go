package llm

// JSON schema for the structured extraction call. OpenAI strict mode
// requires every property listed in required and additionalProperties:false
// on each object, so optional fields are modeled as empty strings.

func stringProp() map[string]any  { return map[string]any{"type": "string"} }
func numberProp() map[string]any  { return map[string]any{"type": "number"} }
func booleanProp() map[string]any { return map[string]any{"type": "boolean"} }

func objectSchema(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func arrayOf(item map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": item}
}

// RecordSchema describes the full clinical record shape. Dates travel as
// ISO YYYY-MM-DD strings; empty string means unknown.
func RecordSchema() map[string]any {
	return objectSchema(map[string]any{
		"demographics": objectSchema(map[string]any{
			"name": stringProp(),
			"mrn":  stringProp(),
			"age":  numberProp(),
			"sex":  stringProp(),
		}),
		"dates": objectSchema(map[string]any{
			"admission":       stringProp(),
			"discharge":       stringProp(),
			"procedure_dates": arrayOf(stringProp()),
		}),
		"pathology": objectSchema(map[string]any{
			"type":     stringProp(),
			"subtype":  stringProp(),
			"location": stringProp(),
		}),
		"procedures": arrayOf(objectSchema(map[string]any{
			"name": stringProp(),
			"date": stringProp(),
		})),
		"complications": arrayOf(objectSchema(map[string]any{
			"name":       stringProp(),
			"onset_date": stringProp(),
			"severity":   stringProp(),
			"resolved":   booleanProp(),
		})),
		"medications": arrayOf(objectSchema(map[string]any{
			"name":      stringProp(),
			"dose":      stringProp(),
			"frequency": stringProp(),
			"route":     stringProp(),
		})),
		"functional_scores": arrayOf(objectSchema(map[string]any{
			"type":  stringProp(),
			"value": numberProp(),
			"date":  stringProp(),
		})),
	})
}

const systemPrompt = `You are a clinical information extraction engine for neurosurgical hospital courses.
Extract ONLY facts stated in the notes. Use ISO YYYY-MM-DD dates; leave a date empty if the notes never state or imply an absolute date.
Do not infer diagnoses that are negated ("no vasospasm") or merely suspected ("possible seizure").
Report each distinct procedure, complication, medication and functional score once.`
