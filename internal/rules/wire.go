package rules

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// remoteDocument is the control plane's rules payload. Both the enveloped
// form {"rules": [...]} and a bare list are accepted.
type remoteDocument struct {
	Rules []Rule `json:"rules"`
}

// ParseRemote decodes a rules payload from the control plane. Individual
// rule problems are left for CompileSet to report; only an undecodable
// document is an error here. Protected flags from the wire are stripped.
func ParseRemote(data []byte) ([]Rule, error) {
	var doc remoteDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		var bare []Rule
		if err2 := json.Unmarshal(data, &bare); err2 != nil {
			return nil, fmt.Errorf("decoding rules payload: %w", err)
		}
		doc.Rules = bare
	}
	for i := range doc.Rules {
		doc.Rules[i].Protected = false
	}
	return doc.Rules, nil
}

// overlayDocument is the user rules file under ~/.openclaw-harness.
type overlayDocument struct {
	Rules []Rule `yaml:"rules"`
}

// ParseOverlay decodes the local YAML overlay. Unlike remote parsing this
// validates every rule up front: a broken overlay is rejected whole so
// the watcher can keep the last good version instead of applying half a
// file.
func ParseOverlay(data []byte) ([]Rule, error) {
	var doc overlayDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding overlay: %w", err)
	}
	for i := range doc.Rules {
		doc.Rules[i].Protected = false
		if err := doc.Rules[i].Validate(); err != nil {
			return nil, fmt.Errorf("overlay: %w", err)
		}
	}
	return doc.Rules, nil
}
