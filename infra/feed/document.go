// Package feed implements schedule feeds: a local file, an HTTP endpoint and
// a Redis key, all delivering the same YAML or JSON document.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/schedule"
)

// Document is the published schedule document.
//
//	stages:
//	  "": 4                  # national stage
//	  tshwane/centurion: 2   # area override
//	entries:
//	  - municipality: tshwane
//	    area: centurion
//	    block: "1"
//	    slots:
//	      - {day: 1, start: "08:00", end: "10:30", stage: 2}
type Document struct {
	Stages  map[string]int        `json:"stages" yaml:"stages"`
	Entries []model.ScheduleEntry `json:"entries" yaml:"entries"`
}

// Format selects the document encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromName guesses the format from a file name or content type.
func FormatFromName(name string) Format {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, ".json"), strings.Contains(n, "application/json"):
		return FormatJSON
	case strings.HasSuffix(n, ".yaml"), strings.HasSuffix(n, ".yml"), strings.Contains(n, "yaml"):
		return FormatYAML
	}
	return FormatAuto
}

// Decode parses a schedule document into feed data. Stage table keys are
// normalized the same way area keys are.
func Decode(data []byte, f Format) (schedule.FeedData, error) {
	if f == FormatAuto {
		f = FormatYAML
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			f = FormatJSON
		}
	}
	var doc Document
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return schedule.FeedData{}, fmt.Errorf("unsupported schedule format %q", f)
	}
	if err != nil {
		return schedule.FeedData{}, fmt.Errorf("decode schedule %s: %w", f, err)
	}
	out := schedule.FeedData{Entries: doc.Entries}
	if len(doc.Stages) > 0 {
		out.Stages = make(schedule.StageTable, len(doc.Stages))
		for k, v := range doc.Stages {
			st := model.Stage(v)
			if !st.Valid() {
				return schedule.FeedData{}, fmt.Errorf("%w: stage %d for %q", model.ErrMalformedSchedule, v, k)
			}
			out.Stages[strings.ToLower(strings.TrimSpace(k))] = st
		}
	}
	return out, nil
}

// Encode renders feed data as a document, used to seed Redis and tests.
func Encode(data schedule.FeedData, f Format) ([]byte, error) {
	doc := Document{Entries: data.Entries}
	if len(data.Stages) > 0 {
		doc.Stages = make(map[string]int, len(data.Stages))
		for k, v := range data.Stages {
			doc.Stages[k] = int(v)
		}
	}
	if f == FormatJSON {
		return json.Marshal(doc)
	}
	return yaml.Marshal(doc)
}
