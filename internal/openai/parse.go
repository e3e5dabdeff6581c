package openai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var errNotJSON = errors.New("content is not valid JSON")

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// parseJSON decodes content as JSON, falling back to the first fenced code
// block when the model wrapped its answer in markdown.
func parseJSON[T any](content string) (T, error) {
	var out T
	trimmed := strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, nil
	}

	if m := fencedJSON.FindStringSubmatch(trimmed); len(m) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &out); err == nil {
			return out, nil
		}
	}

	return out, errNotJSON
}

// stringList accepts a JSON array of arbitrary values, stringifying each, or
// a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = stringList{}
		} else {
			*l = stringList{single}
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	out := make(stringList, 0, len(items))
	for _, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(raw))
	}
	*l = out
	return nil
}

// flexibleText accepts a JSON string or any other value, which is kept as
// its raw JSON text.
type flexibleText string

func (t *flexibleText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = flexibleText(s)
		return nil
	}
	if string(data) == "null" {
		*t = ""
		return nil
	}
	*t = flexibleText(data)
	return nil
}

type summaryPayload struct {
	Summary    flexibleText `json:"summary"`
	Highlights stringList   `json:"highlights"`
}

type answerPayload struct {
	Answer            flexibleText `json:"answer"`
	Justifications    stringList   `json:"justifications"`
	ReferencedResumes stringList   `json:"referenced_resumes"`
}
