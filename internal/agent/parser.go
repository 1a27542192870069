package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError describes why a model response could not be parsed into
// an action. The loop converts it into an observation so the model can
// correct itself on the next iteration.
type ParseError struct {
	Reason   string
	Response string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse agent response: %s", e.Reason)
}

var (
	thoughtRe = regexp.MustCompile(`(?is)<thought>\s*(.+?)\s*</thought>`)
	actionRe  = regexp.MustCompile(`(?is)<action>\s*(.+?)\s*</action>`)
	callRe    = regexp.MustCompile(`^(\w+)\((.*)\)$`)
	keyRe     = regexp.MustCompile(`(\w+)\s*[=:]\s*`)
)

// parseResponse extracts the thought and the single action call from a
// model response. The thought tag is optional; the action tag is
// required.
func parseResponse(response string) (thought, action string, params map[string]any, err error) {
	if m := thoughtRe.FindStringSubmatch(response); m != nil {
		thought = strings.TrimSpace(m[1])
	}

	m := actionRe.FindStringSubmatch(response)
	if m == nil {
		return "", "", nil, &ParseError{Reason: "no <action> tag found", Response: response}
	}

	// Collapse the call onto one line; models sometimes wrap long
	// parameter values.
	call := strings.Join(strings.Fields(m[1]), " ")

	cm := callRe.FindStringSubmatch(call)
	if cm == nil {
		return "", "", nil, &ParseError{Reason: fmt.Sprintf("invalid action format: %s", call), Response: response}
	}

	params, err = parseParams(cm[2])
	if err != nil {
		return "", "", nil, err
	}
	return thought, cm[1], params, nil
}

// parseParams reads the parameter list of an action call. Two grammars
// are accepted: a strict JSON object, or quoted key="value" pairs
// (a colon is tolerated in place of the equals sign).
func parseParams(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]any{}, nil
	}

	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		var params map[string]any
		if err := json.Unmarshal([]byte(text), &params); err == nil {
			return params, nil
		}
		// Not valid JSON after all; fall through to the pair grammar.
	}

	params := map[string]any{}
	for _, loc := range keyRe.FindAllStringSubmatchIndex(text, -1) {
		key := text[loc[2]:loc[3]]
		remaining := text[loc[1]:]
		if remaining == "" {
			continue
		}

		quote := remaining[0]
		if quote != '"' && quote != '\'' {
			continue
		}

		value, ok := scanQuoted(remaining, quote)
		if !ok {
			continue
		}
		params[key] = value
	}

	if len(params) == 0 {
		return nil, &ParseError{Reason: fmt.Sprintf("unparseable parameters: %s", text)}
	}
	return params, nil
}

// scanQuoted extracts the value between quotes, accepting an embedded
// quote character as part of the value unless it is followed by a
// delimiter. This keeps values containing quotes intact without
// requiring the model to escape them.
func scanQuoted(s string, quote byte) (string, bool) {
	end := -1
	for pos := 1; pos < len(s); {
		idx := strings.IndexByte(s[pos:], quote)
		if idx == -1 {
			break
		}
		pos += idx

		after := strings.TrimSpace(s[pos+1:])
		if after == "" || after[0] == ',' || after[0] == ')' {
			end = pos
			break
		}
		pos++
	}

	if end == -1 {
		// Unterminated value: take everything up to the last quote, or
		// the whole remainder when none exists.
		if idx := strings.LastIndexByte(s[1:], quote); idx != -1 {
			end = idx + 1
		} else {
			end = len(s)
		}
	}
	if end < 1 {
		return "", false
	}
	return s[1:end], true
}
