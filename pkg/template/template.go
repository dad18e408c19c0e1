// Package template renders lead-aware text templates used by action node configs.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/dukex/leadflow/pkg/models"
)

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"rand": func(max int) int {
		if max <= 0 {
			return 0
		}

		num := make([]byte, 1)

		_, err := rand.Read(num)
		if err != nil {
			return 0
		}

		return int(num[0]) % max
	},
	"digits": func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}

			return -1
		}, s)
	},
	"firstName": func(s string) string {
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return ""
		}

		return fields[0]
	},
}

// NeedsTemplating reports whether the input contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// RenderText executes templateStr against data and returns the raw output.
func RenderText(templateStr string, data any) (string, error) {
	tmpl, err := template.New("transform").Funcs(funcs).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// Render executes templateStr against data and coerces the output to a JSON value,
// a number or a boolean when it parses as one.
func Render(templateStr string, data any) (any, error) {
	result, err := RenderText(templateStr, data)
	if err != nil {
		return nil, err
	}

	result = strings.TrimSpace(result)
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// RenderLead renders a message template against a lead. Plain strings are returned unchanged.
func RenderLead(input string, lead *models.Lead) (string, error) {
	if !NeedsTemplating(input) {
		return input, nil
	}

	return RenderText(input, lead)
}

// RenderLeadValue renders a field value against a lead, coercing the output like Render.
// Non-string values are returned unchanged.
func RenderLeadValue(value any, lead *models.Lead) (any, error) {
	str, ok := value.(string)
	if !ok || !NeedsTemplating(str) {
		return value, nil
	}

	return Render(str, lead)
}
