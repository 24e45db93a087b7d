// Package manifest validates and dispatches the manifest text a learner
// edits alongside a lab step.
//
// IsValid only gates the apply and delete affordances. Apply never checks
// it: the sandbox is the authority on whether a manifest is acceptable.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/audit"
	laberrors "github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/prompt"
)

// IsValid reports whether text is one or more YAML documents that are all
// mappings. Blank text, comment-only text, scalars and sequences are not.
func IsValid(text string) bool {
	_, err := Parse(text)
	return err == nil
}

// Parse decodes every document in text and returns their count. It fails
// unless every document is a mapping and there is at least one.
func Parse(text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, laberrors.Validation("manifest is empty")
	}

	dec := yaml.NewDecoder(strings.NewReader(text))
	docs := 0
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, laberrors.Validation("manifest is not valid YAML: " + err.Error())
		}

		if len(node.Content) == 0 || isEmptyDocument(node.Content[0]) {
			continue
		}
		if kind := node.Content[0].Kind; kind != yaml.MappingNode {
			return 0, laberrors.Validation(fmt.Sprintf("manifest document %d is a %s, not a mapping", docs+1, kindName(kind)))
		}
		docs++
	}

	if docs == 0 {
		return 0, laberrors.Validation("manifest has no documents")
	}
	return docs, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}

// isEmptyDocument matches the implicit null of a bare "---" separator.
func isEmptyDocument(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" && n.Value == ""
}

// Service is the slice of the API the workbench calls.
type Service interface {
	ApplyManifest(ctx context.Context, sessionID, manifest string) (*api.ActionResult, error)
	DeleteManifest(ctx context.Context, sessionID, manifest string) (*api.ActionResult, error)
}

// Workbench sends manifest text to a session's sandbox.
type Workbench struct {
	svc   Service
	audit audit.Sink
}

// NewWorkbench creates a workbench. sink may be nil.
func NewWorkbench(svc Service, sink audit.Sink) *Workbench {
	if sink == nil {
		sink = audit.Discard
	}
	return &Workbench{svc: svc, audit: sink}
}

// Apply applies text in the session's sandbox. Each call is a new request;
// the result depends only on the sandbox.
func (w *Workbench) Apply(ctx context.Context, sessionID, text string) (*api.ActionResult, error) {
	if sessionID == "" {
		return nil, laberrors.NoSession()
	}

	logging.Debug("applying manifest", "session", sessionID, "bytes", len(text))
	res, err := w.svc.ApplyManifest(ctx, sessionID, text)
	if err != nil {
		w.record(audit.EventError, sessionID, "apply: "+err.Error())
		return nil, err
	}
	w.record(audit.EventApply, sessionID, summary(text))
	return res, nil
}

// Delete deletes the resources text describes, after confirm approves.
// A declined confirmation sends nothing.
func (w *Workbench) Delete(ctx context.Context, sessionID, text string, confirm prompt.Confirmer) (*api.ActionResult, error) {
	if sessionID == "" {
		return nil, laberrors.NoSession()
	}
	if !confirm.Confirm("Delete the resources in this manifest from the sandbox?") {
		return nil, laberrors.Cancelled("manifest delete")
	}

	res, err := w.svc.DeleteManifest(ctx, sessionID, text)
	if err != nil {
		w.record(audit.EventError, sessionID, "delete: "+err.Error())
		return nil, err
	}
	w.record(audit.EventDelete, sessionID, summary(text))
	return res, nil
}

func (w *Workbench) record(t audit.EventType, sessionID, details string) {
	audit.Record(w.audit, audit.Event{Type: t, Session: sessionID, Details: details})
}

// summary describes a manifest by its kind/name pairs for the audit trail.
func summary(text string) string {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var parts []string
	for {
		var doc struct {
			Kind     string `yaml:"kind"`
			Metadata struct {
				Name string `yaml:"name"`
			} `yaml:"metadata"`
		}
		if err := dec.Decode(&doc); err != nil {
			break
		}
		if doc.Kind == "" {
			continue
		}
		p := doc.Kind
		if doc.Metadata.Name != "" {
			p += "/" + doc.Metadata.Name
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d bytes", len(text))
	}
	return strings.Join(parts, ", ")
}
