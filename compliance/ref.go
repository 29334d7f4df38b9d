/*
ref.go - Polymorphic reference resolution

PURPOSE:
  Foreign keys coming from the store may be a bare ID string or an
  already-populated object ({"_id": "...", "name": "..."}). Every
  downstream component works on the canonical Ref shape instead of
  re-deriving the ID at each call site.

RESOLUTION RULES:
  string                  -> Ref{ID: s}
  Ref / *Ref              -> as-is
  map[string]any          -> "_id" or "id" for ID, first of "name",
                             "displayName", "title" for DisplayName
  json.RawMessage / []byte -> decoded, then resolved as above
  anything else           -> AmbiguousReferenceError

  Unresolvable references are a data-integrity warning, not a failure:
  ResolveOrPlaceholder falls back to a placeholder label.

SEE ALSO:
  - errors.go: AmbiguousReferenceError
  - filter.go: Worker/class predicates resolve through Ref
*/
package compliance

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PlaceholderLabel is shown for references that could not be resolved.
const PlaceholderLabel = "לא ידוע"

// Ref is the canonical {id, displayName?} shape of a reference.
type Ref struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// Label returns the display name, falling back to the ID.
func (r Ref) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	if r.ID != "" {
		return r.ID
	}
	return PlaceholderLabel
}

func (r Ref) IsZero() bool { return r.ID == "" }

// ResolveRef converts a raw reference of either shape into a Ref.
func ResolveRef(raw any) (Ref, error) {
	switch v := raw.(type) {
	case string:
		id := strings.TrimSpace(v)
		if id == "" {
			return Ref{}, &AmbiguousReferenceError{Raw: raw}
		}
		return Ref{ID: id}, nil
	case Ref:
		if v.ID == "" {
			return Ref{}, &AmbiguousReferenceError{Raw: raw}
		}
		return v, nil
	case *Ref:
		if v == nil || v.ID == "" {
			return Ref{}, &AmbiguousReferenceError{Raw: raw}
		}
		return *v, nil
	case map[string]any:
		return refFromMap(v, raw)
	case json.RawMessage:
		return refFromJSON(v)
	case []byte:
		return refFromJSON(v)
	}
	return Ref{}, &AmbiguousReferenceError{Raw: raw}
}

// ResolveOrPlaceholder never fails: unresolvable input yields a Ref
// carrying the placeholder label, plus the resolution error for logging.
func ResolveOrPlaceholder(raw any) (Ref, error) {
	ref, err := ResolveRef(raw)
	if err != nil {
		return Ref{DisplayName: PlaceholderLabel}, err
	}
	return ref, nil
}

func refFromMap(m map[string]any, raw any) (Ref, error) {
	var ref Ref
	for _, k := range []string{"_id", "id"} {
		if s, ok := m[k].(string); ok && s != "" {
			ref.ID = s
			break
		}
	}
	if ref.ID == "" {
		return Ref{}, &AmbiguousReferenceError{Raw: raw}
	}
	for _, k := range []string{"name", "displayName", "title"} {
		if s, ok := m[k].(string); ok && s != "" {
			ref.DisplayName = s
			break
		}
	}
	return ref, nil
}

func refFromJSON(data []byte) (Ref, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Ref{}, &AmbiguousReferenceError{Raw: string(data), Cause: err}
	}
	return ResolveRef(v)
}

// UnmarshalJSON accepts both a bare ID string and a populated object.
func (r *Ref) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	ref, err := refFromJSON(data)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

func (r Ref) String() string {
	if r.DisplayName == "" {
		return r.ID
	}
	return fmt.Sprintf("%s (%s)", r.DisplayName, r.ID)
}
